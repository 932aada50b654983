package analyzer

import "testing"

// ========== DetectSubject ==========

func TestDetectSubject_ComputerScience(t *testing.T) {
	text := "Explain deadlock avoidance in an operating system. Describe TCP flow control and database indexing."
	if got := DetectSubject(text); got != "Computer Science" {
		t.Errorf("DetectSubject = %q, want 'Computer Science'", got)
	}
}

func TestDetectSubject_Physics(t *testing.T) {
	text := "State the law of conservation of momentum. Derive the expression for kinetic energy of a wave."
	if got := DetectSubject(text); got != "Physics" {
		t.Errorf("DetectSubject = %q, want 'Physics'", got)
	}
}

func TestDetectSubject_NoMatches(t *testing.T) {
	if got := DetectSubject("lorem ipsum dolor sit amet"); got != "General" {
		t.Errorf("DetectSubject = %q, want 'General'", got)
	}
}

func TestDetectSubject_EmptyInput(t *testing.T) {
	if got := DetectSubject(""); got != "General" {
		t.Errorf("DetectSubject of empty = %q, want 'General'", got)
	}
}

func TestDetectSubject_TieGoesToTableOrder(t *testing.T) {
	// One Computer Science keyword and one Physics keyword: Computer
	// Science comes first in the table, so it wins the tie.
	text := "algorithm momentum"
	if got := DetectSubject(text); got != "Computer Science" {
		t.Errorf("DetectSubject = %q, want 'Computer Science' on tie", got)
	}
}

func TestDetectSubject_WholeWordsOnly(t *testing.T) {
	// "warfare" must not count as "war", "cellar" not as "cell".
	if got := DetectSubject("warfare cellar"); got != "General" {
		t.Errorf("DetectSubject = %q, want 'General' (no whole-word hits)", got)
	}
}

func TestDetectSubject_Deterministic(t *testing.T) {
	text := "matrix determinant eigenvalue"
	first := DetectSubject(text)
	for i := 0; i < 10; i++ {
		if got := DetectSubject(text); got != first {
			t.Fatalf("DetectSubject unstable: %q then %q", first, got)
		}
	}
	if first != "Mathematics" {
		t.Errorf("DetectSubject = %q, want 'Mathematics'", first)
	}
}
