package funnel

import (
	"fmt"
	"strings"
)

// Compact renders the one-line step indicator appended to most replies,
// for example "[3/8] 📋 Résultats".
func Compact(s Step) string {
	return fmt.Sprintf("[%d/%d] %s %s", s.Number(), len(steps), s.Icon(), s.Label())
}

// Panel renders the full multi-line progress view: a dot row, the
// current step and a hint at the next one. Used sparingly since every
// line counts against the transport's message cap.
func Panel(s Step) string {
	var b strings.Builder

	b.WriteString("📊 *Votre progression*\n")

	cur := s.Index()
	for i := range steps {
		switch {
		case i < cur:
			b.WriteString("●")
		case i == cur:
			b.WriteString("◉")
		default:
			b.WriteString("○")
		}
	}
	fmt.Fprintf(&b, " %d%%\n", s.Progress())

	fmt.Fprintf(&b, "%s *%s* (étape %d/%d)", s.Icon(), s.Label(), s.Number(), len(steps))

	if next := s.Next(); next != s {
		fmt.Fprintf(&b, "\n➡️ Prochaine étape : %s %s", next.Icon(), next.Label())
	}

	return b.String()
}
