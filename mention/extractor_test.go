package mention

import (
	"reflect"
	"testing"
)

func TestExtract_AngleAndBracketForms(t *testing.T) {
	extractor := New()

	got := extractor.Extract("<@U123> can you sync with <@U456|maria> and @[svc-bot]?")
	want := []string{"U123", "U456", "svc-bot"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestExtract_DeduplicatesPreservingOrder(t *testing.T) {
	extractor := New()

	got := extractor.Extract("<@U9> ping <@U2>, then <@U9> again")
	want := []string{"U9", "U2"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestExtract_IgnoresCodeSpansAndFences(t *testing.T) {
	extractor := New()

	got := extractor.Extract("use `<@U111>` as the literal, ask <@U222> for review")
	want := []string{"U222"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}

	got = extractor.Extract("```\n<@U333> inside a fence\n```\nreal ping <@U444>")
	want = []string{"U444"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestExtract_EmptyAndPlainText(t *testing.T) {
	extractor := New()

	if got := extractor.Extract(""); got != nil {
		t.Fatalf("expected nil for empty text, got %v", got)
	}
	if got := extractor.Extract("no mentions here, just email a@b.com"); got != nil {
		t.Fatalf("expected nil for plain text, got %v", got)
	}
}

func TestStrip(t *testing.T) {
	got := Strip("<@U123> can you review the payment API today?")
	want := "can you review the payment API today?"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}

	got = Strip("ask @[bot] and <@U1|sam> please")
	want = "ask and please"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}
