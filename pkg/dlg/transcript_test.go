package dlg

import (
	"strings"
	"testing"
)

func TestWriteTranscript(t *testing.T) {
	c := New()
	e1 := c.AddStartEntry()
	e1.Text.Strings[0] = "Halt!"
	e1.Speaker = "guard"
	r1, err := c.AddChild(e1)
	if err != nil {
		t.Fatalf("AddChild: %v", err)
	}
	r1.Text.Strings[0] = "Who goes there?"
	c.Owner(r1).Active = "is_night"
	e2, err := c.AddChild(r1)
	if err != nil {
		t.Fatalf("AddChild: %v", err)
	}
	e2.Text.StrRef = 77
	r2, err := c.AddChild(e1)
	if err != nil {
		t.Fatalf("AddChild: %v", err)
	}
	r2.Text.Strings[0] = "Just passing through."
	if _, err := c.Link(r2, e1); err != nil {
		t.Fatalf("Link: %v", err)
	}

	var b strings.Builder
	if err := WriteTranscript(&b, c, TranscriptOptions{}); err != nil {
		t.Fatalf("WriteTranscript: %v", err)
	}

	want := strings.Join([]string{
		"NPC (guard): Halt!",
		"  PC (if is_night): Who goes there?",
		"    NPC: [strref 77]",
		"  PC: Just passing through.",
		"    NPC (guard): Halt! [link]",
		"",
	}, "\n")
	if got := b.String(); got != want {
		t.Errorf("transcript =\n%s\nwant\n%s", got, want)
	}
}

func TestWriteTranscriptQuarantineSection(t *testing.T) {
	c, _, e2, _ := quarantineFixture(t)
	e2.Text.Strings[0] = "forgotten line"

	var b strings.Builder
	if err := WriteTranscript(&b, c, TranscriptOptions{}); err != nil {
		t.Fatalf("WriteTranscript: %v", err)
	}
	out := b.String()
	if !strings.Contains(out, "[quarantine]") {
		t.Error("quarantine section missing")
	}
	if !strings.Contains(out, "forgotten line") {
		t.Error("quarantined text missing from transcript")
	}
}

func TestWriteTranscriptPicksLanguage(t *testing.T) {
	c := New()
	e := c.AddStartEntry()
	e.Text.Strings[0] = "Good day."
	e.Text.Strings[LangID(1, false)] = "Bonjour."

	var b strings.Builder
	if err := WriteTranscript(&b, c, TranscriptOptions{Lang: LangID(1, false)}); err != nil {
		t.Fatalf("WriteTranscript: %v", err)
	}
	if got := b.String(); got != "NPC: Bonjour.\n" {
		t.Errorf("transcript = %q, want the French line", got)
	}
}

func TestWriteTranscriptCutsCycles(t *testing.T) {
	// An owning cycle must terminate with a loop marker.
	c := New()
	e := newNode(KindEntry)
	e.Text.Strings[0] = "again"
	r := newNode(KindReply)
	r.Text.Strings[0] = "and again"
	c.Entries = append(c.Entries, e)
	c.Replies = append(c.Replies, r)
	e.Pointers = []*Pointer{{Target: r, source: e}}
	r.Pointers = []*Pointer{{Target: e, source: r}}
	c.Starts = []*Pointer{{Target: e}}
	c.RebuildLinks()

	var b strings.Builder
	if err := WriteTranscript(&b, c, TranscriptOptions{}); err != nil {
		t.Fatalf("WriteTranscript: %v", err)
	}
	want := strings.Join([]string{
		"NPC: again",
		"  PC: and again",
		"    NPC: again [loops]",
		"",
	}, "\n")
	if got := b.String(); got != want {
		t.Errorf("transcript =\n%s\nwant\n%s", got, want)
	}
}
