package eval

import "testing"

func TestSortQuestionsByQIDIsNumericAware(t *testing.T) {
	qs := []LabeledQuestion{{QID: "q10"}, {QID: "q2"}, {QID: "q1"}}
	sortQuestionsByQID(qs)
	want := []string{"q1", "q2", "q10"}
	for i, w := range want {
		if qs[i].QID != w {
			t.Errorf("position %d = %q, want %q", i, qs[i].QID, w)
		}
	}
}

func TestLessQIDPlainStringFallback(t *testing.T) {
	if !lessQID("alpha", "beta") {
		t.Error("expected lexical fallback for non-numeric qids")
	}
}
