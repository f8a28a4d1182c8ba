package response

import (
	"encoding/json"
	"testing"

	"github.com/kailas-cloud/searchagent/internal/domain/retrieval"
	"github.com/kailas-cloud/searchagent/internal/domain/safety"
)

func TestAssemble_Approved(t *testing.T) {
	d := safety.NewDraft("Upgrades are free this month.", []string{"https://kb/1", " ", "https://kb/2"}, "You qualify for Gold.")

	r := Assemble(d, safety.Verdict{Decision: safety.Approved}, true)
	if r.Summary != "Upgrades are free this month." {
		t.Errorf("Summary = %q", r.Summary)
	}
	if r.Personalised != "You qualify for Gold." {
		t.Errorf("Personalised = %q", r.Personalised)
	}
	if len(r.Links) != 2 || r.Links[0] != "https://kb/1" || r.Links[1] != "https://kb/2" {
		t.Errorf("Links = %v", r.Links)
	}
}

func TestAssemble_AnonymousNeverPersonalised(t *testing.T) {
	d := safety.NewDraft("summary", nil, "leaked")
	r := Assemble(d, safety.Verdict{Decision: safety.Approved}, false)
	if r.Personalised != "" {
		t.Errorf("Personalised = %q, want empty", r.Personalised)
	}
}

func TestAssemble_BlankSummaryBecomesSentinel(t *testing.T) {
	r := Assemble(safety.NewDraft("  ", nil, ""), safety.Verdict{Decision: safety.Approved}, false)
	if r.Summary != retrieval.NoAnswer {
		t.Errorf("Summary = %q", r.Summary)
	}
	if r.Links == nil {
		t.Error("Links must not be nil")
	}
}

func TestAssemble_Filtered(t *testing.T) {
	d := safety.NewDraft("raw summary", []string{"https://kb/1"}, "raw personal")
	r := Assemble(d, safety.Verdict{Decision: safety.Filtered, Filtered: "clean summary"}, true)
	if r.Summary != "clean summary" {
		t.Errorf("Summary = %q", r.Summary)
	}
	if r.Personalised != "" {
		t.Errorf("Personalised = %q, want empty", r.Personalised)
	}
	if len(r.Links) != 1 {
		t.Errorf("Links = %v, want retained", r.Links)
	}
}

func TestAssemble_FilteredCombinedRewriteIsSummary(t *testing.T) {
	d := safety.NewDraft("Call 555-0100 for refunds", nil, "Your card ending 4242 qualifies")
	rewrite := "Call [PHONE] for refunds\n\nYour card ending [CARD] qualifies"
	r := Assemble(d, safety.Judge(d, safety.Block(rewrite, "pii")), true)
	if r.Summary != rewrite {
		t.Errorf("Summary = %q, want the whole rewrite", r.Summary)
	}
	if r.Personalised != "" {
		t.Errorf("Personalised = %q, want empty", r.Personalised)
	}
	if r.Links == nil {
		t.Error("Links must encode as an empty list")
	}
}

func TestAssemble_RefusedAndFailClosed(t *testing.T) {
	d := safety.NewDraft("raw summary", []string{"https://kb/1"}, "raw personal")
	for _, v := range []safety.Verdict{{Decision: safety.Refused}, safety.FailClosed()} {
		r := Assemble(d, v, true)
		if r.Summary != safety.Refusal {
			t.Errorf("%s: Summary = %q", v.Decision, r.Summary)
		}
		if r.Personalised != "" || len(r.Links) != 0 || r.Links == nil {
			t.Errorf("%s: unexpected response %+v", v.Decision, r)
		}
	}
}

func TestResponse_JSONShape(t *testing.T) {
	b, err := json.Marshal(Refusal())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"personalised":"","summary":"` + safety.Refusal + `","links":[]}`
	if string(b) != want {
		t.Errorf("json = %s\nwant  %s", b, want)
	}
}
