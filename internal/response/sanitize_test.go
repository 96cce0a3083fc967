package response

import (
	"reflect"
	"testing"
)

func strPtr(value string) *string {
	return &value
}

func TestSanitizeStripsEmphasisAndBlankLines(t *testing.T) {
	input := Result{
		HomeRemedy: strPtr("**Kadha**\r\n\r\n\r\n* Boil *tulsi* leaves\r* Sip __warm__ water  \n\n"),
		Diagnosis: &Diagnosis{
			Condition:       "***Viral fever***",
			Probability:     0.65,
			Recommendations: TextList{"**Rest**", "  ", "~~Hydrate~~"},
		},
	}
	got := Sanitize(input)

	if got.HomeRemedy == nil {
		t.Fatalf("expected home remedy to survive sanitization")
	}
	want := "Kadha\n- Boil tulsi leaves\n- Sip warm water"
	if *got.HomeRemedy != want {
		t.Fatalf("unexpected home remedy:\n got %q\nwant %q", *got.HomeRemedy, want)
	}
	if got.Diagnosis.Condition != "Viral fever" {
		t.Fatalf("unexpected condition %q", got.Diagnosis.Condition)
	}
	if !reflect.DeepEqual(got.Diagnosis.Recommendations, TextList{"Rest", "Hydrate"}) {
		t.Fatalf("unexpected recommendations %v", got.Diagnosis.Recommendations)
	}
}

func TestSanitizeIsIdempotent(t *testing.T) {
	severity := Score(80)
	inputs := []Result{
		{Question: strPtr("  What is your *age*?\\nAnd gender?  ")},
		{
			Diagnosis: &Diagnosis{
				Condition:       "__Migraine__",
				Probability:     70,
				Genesis:         "Neuro*\\*n*vascular",
				Recommendations: TextList{"* sleep", "_~~_dark room", ""},
				SeverityScore:   &severity,
			},
			HomeRemedy: strPtr("\\*n\r\n\r\n ginger tea"),
		},
		{DietPlan: strPtr("Day 1:\r\n\r\n  * oats\n\n\nDay 2: ***rice***")},
		{},
	}
	for i, input := range inputs {
		once := Sanitize(input)
		twice := Sanitize(once)
		if !reflect.DeepEqual(once, twice) {
			t.Fatalf("case %d not idempotent:\n once %+v\ntwice %+v", i, once, twice)
		}
	}
}

func TestSanitizeEnforcesMutualExclusion(t *testing.T) {
	got := Sanitize(Result{
		Question:   strPtr("Anything else?"),
		Diagnosis:  &Diagnosis{Condition: "Cold", Recommendations: TextList{"rest"}},
		HomeRemedy: strPtr("honey"),
	})
	if got.Question != nil {
		t.Fatalf("expected question to be dropped when completion fields are present")
	}
	if got.Diagnosis == nil || got.HomeRemedy == nil {
		t.Fatalf("expected completion fields to be kept")
	}
}

func TestSanitizeNullsEmptyValues(t *testing.T) {
	got := Sanitize(Result{
		Question:  strPtr(" ** "),
		Diagnosis: &Diagnosis{Condition: "  ", Recommendations: TextList{"**"}},
		DietPlan:  strPtr("\r\n"),
	})
	if got.Question != nil || got.Diagnosis != nil || got.DietPlan != nil || got.HomeRemedy != nil {
		t.Fatalf("expected inconclusive all-null result, got %+v", got)
	}
	if !got.Terminal() {
		t.Fatalf("expected all-null result to be terminal")
	}
}

func TestSanitizeNormalizesScores(t *testing.T) {
	cases := []struct {
		in   Score
		want Score
	}{
		{in: 0.42, want: 0.42},
		{in: 70, want: 0.7},
		{in: 250, want: 1},
		{in: -3, want: 0},
	}
	for _, tc := range cases {
		got := Sanitize(Result{Diagnosis: &Diagnosis{Condition: "x", Probability: tc.in}})
		if got.Diagnosis.Probability != tc.want {
			t.Fatalf("probability %v: expected %v, got %v", tc.in, tc.want, got.Diagnosis.Probability)
		}
	}
}
