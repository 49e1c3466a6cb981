package script

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DummyGenerator is the network-free script provider used in tests and
// development. Output is deterministic for a given request.
type DummyGenerator struct{}

// NewDummyGenerator constructs the dummy script provider.
func NewDummyGenerator() *DummyGenerator {
	return &DummyGenerator{}
}

func (d *DummyGenerator) Name() string { return "dummy" }

func (d *DummyGenerator) Generate(_ context.Context, req GenerateRequest) (*ScriptSet, error) {
	n := req.TargetCount
	if n < 1 {
		n = 1
	}

	hook := "これ、歌えるようになる？"
	body := "Before → After を一瞬で見せる"
	cta := "使ってみて：" + ctaTarget(req.ProductName)

	set := &ScriptSet{}
	for i := 1; i <= n; i++ {
		set.Variants = append(set.Variants, Variant{
			VariantIndex: i,
			Hook:         hook,
			Body:         body,
			CTA:          cta,
			FullScript:   fmt.Sprintf("%s\n%s\n%s", hook, body, cta),
			Captions: []Caption{
				{T: 0.0, Text: hook},
				{T: 2.5, Text: body},
				{T: 6.0, Text: cta},
			},
			Shot: Shot{
				Scene:   "indoors",
				Camera:  "selfie",
				Tone:    "casual",
				Gesture: []string{"smile", "show product", "nod"},
			},
			Compliance: Compliance{
				NoMedicalClaim: true,
				NoBeforeAfter:  true,
			},
		})
	}
	return set, nil
}

func ctaTarget(productName string) string {
	name := strings.TrimSpace(productName)
	if name == "" {
		return "singkana.com"
	}
	return cases.Title(language.Und).String(name)
}

var _ Generator = (*DummyGenerator)(nil)
