// Command analyze runs the question extraction pipeline over local files
// and prints the results as JSON, without starting the server.
//
// Usage:
//
//	analyze paper.pdf [more files...]
//
// With DEEPSEEK_API_KEY (or OPENAI_API_KEY and LLM_PROVIDER=openai) set,
// extraction goes through the LLM; otherwise the heuristic extractor runs.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"paperscope/internal/extractor"
	"paperscope/internal/llm"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		log.Fatal("usage: analyze <paper.pdf|paper.docx|paper.png|paper.txt> ...")
	}

	providerName := os.Getenv("LLM_PROVIDER")
	if providerName == "" {
		providerName = "deepseek"
	}
	apiKey := os.Getenv("DEEPSEEK_API_KEY")
	if providerName == "openai" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}

	var provider llm.Provider
	if apiKey != "" {
		var err error
		provider, err = llm.NewProvider(providerName, apiKey, "", os.Getenv("DEEPSEEK_PROXY_URL"))
		if err != nil {
			log.Fatalf("Failed to create LLM provider: %v", err)
		}
	} else {
		log.Printf("No API key configured, using heuristic extraction")
	}

	ocrCfg := &extractor.OCRConfig{
		Provider:    os.Getenv("OCR_PROVIDER"),
		SarvamKey:   os.Getenv("SARVAM_API_KEY"),
		TesseractOk: extractor.DetectTesseract(),
	}

	out := json.NewEncoder(os.Stdout)
	out.SetIndent("", "  ")

	for _, path := range os.Args[1:] {
		fmt.Fprintf(os.Stderr, "Analyzing %s...\n", path)

		chunks, err := extractor.ExtractFile(path, ocrCfg)
		if err != nil {
			log.Printf("Failed to extract %s: %v", path, err)
			continue
		}

		analysis := llm.AnalyzeQuestions(context.Background(), provider, extractor.FullText(chunks))
		fmt.Fprintf(os.Stderr, "Extracted %d questions (source: %s)\n", len(analysis.Questions), analysis.Source)

		if err := out.Encode(map[string]interface{}{
			"file":     path,
			"analysis": analysis,
		}); err != nil {
			log.Printf("Failed to encode output for %s: %v", path, err)
		}
	}
}
