package intent

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mitravox/internal/lang"
)

func newDefaultResolver(t *testing.T) *Resolver {
	t.Helper()
	return NewResolver(DefaultTable())
}

func TestResolveEnglish(t *testing.T) {
	r := newDefaultResolver(t)

	tests := []struct {
		transcript string
		want       string
	}{
		{"open weather", "weather"},
		{"  OPEN   Weather  ", "weather"},
		{"what is the mandi rate for onion", "crop-prices"},
		{"show me the market rate", "crop-prices"},
		{"I want to sell my tomatoes", "marketplace"},
		{"my leaf has yellow spots", "crop-scan"},
		{"calculate loan emi", "loan-calculator"},
		{"simple interest", "interest-calculator"},
		{"book a soil test", "soil-testing"},
		{"government yojana list", "government-schemes"},
		{"open mitra connect", "mitra-connect"},
		{"how many reward points do I have", "rewards"},
		{"I need a tractor on hire", "equipment-rental"},
		{"go home", "dashboard"},
	}

	for _, tt := range tests {
		t.Run(tt.transcript, func(t *testing.T) {
			got, ok := r.Resolve(lang.English, tt.transcript)
			require.True(t, ok)
			assert.Equal(t, tt.want, got.ID)
		})
	}
}

func TestResolveNoMatch(t *testing.T) {
	r := newDefaultResolver(t)

	for _, c := range lang.All {
		for _, transcript := range []string{
			"how much water does rice need",
			"",
			"   ",
			"hello",
		} {
			_, ok := r.Resolve(c, transcript)
			assert.False(t, ok, "lang=%s transcript=%q", c, transcript)
		}
	}
}

func TestResolveIsDeterministic(t *testing.T) {
	r := newDefaultResolver(t)

	first, ok := r.Resolve(lang.English, "open weather")
	require.True(t, ok)
	for i := 0; i < 10; i++ {
		again, ok := r.Resolve(lang.English, "open weather")
		require.True(t, ok)
		assert.Equal(t, first, again)
	}
	assert.Equal(t, "/weather", first.Path)
}

func TestResolveTableOrderBreaksTies(t *testing.T) {
	table, err := LoadTable(strings.NewReader(`
targets:
  - id: first
    path: /first
    labels: {en: first, hi: पहला, te: మొదటి}
  - id: second
    path: /second
    labels: {en: second, hi: दूसरा, te: రెండవ}
routes:
  en:
    - target: first
      keywords: [alpha]
    - target: second
      keywords: [beta]
`))
	require.NoError(t, err)
	r := NewResolver(table)

	got, ok := r.Resolve(lang.English, "beta and alpha")
	require.True(t, ok)
	assert.Equal(t, "first", got.ID)
}

func TestResolveLocalizationParity(t *testing.T) {
	r := newDefaultResolver(t)

	tests := []struct {
		target string
		en     string
		hi     string
		te     string
	}{
		{"weather", "open weather", "मौसम दिखाओ", "వాతావరణం చూపించు"},
		{"crop-prices", "today's mandi price", "आज मंडी का भाव क्या है", "ఈరోజు మార్కెట్ ధర ఎంత"},
		{"soil-testing", "soil test", "मिट्टी की जांच", "నేల పరీక్ష"},
		{"loan-calculator", "loan", "मुझे लोन चाहिए", "నాకు రుణం కావాలి"},
		{"government-schemes", "schemes", "सरकारी योजना", "ప్రభుత్వ పథకాలు"},
		{"crop-scan", "crop disease", "फसल की बीमारी", "పంట తెగులు"},
		{"insurance", "insurance", "फसल बीमा", "పంట బీమా"},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			for c, transcript := range map[lang.Code]string{
				lang.English: tt.en,
				lang.Hindi:   tt.hi,
				lang.Telugu:  tt.te,
			} {
				got, ok := r.Resolve(c, transcript)
				require.True(t, ok, "lang=%s transcript=%q", c, transcript)
				assert.Equal(t, tt.target, got.ID, "lang=%s", c)
			}
		})
	}
}

func TestResolveEnglishFallbackInIndicLanguages(t *testing.T) {
	r := newDefaultResolver(t)

	got, ok := r.Resolve(lang.Hindi, "weather खोलो")
	require.True(t, ok)
	assert.Equal(t, "weather", got.ID)

	// Telugu table is consulted before English.
	got, ok = r.Resolve(lang.Telugu, "weather కాదు, బీమా")
	require.True(t, ok)
	assert.Equal(t, "insurance", got.ID)
}

func TestTargetLabels(t *testing.T) {
	table := DefaultTable()

	tg, ok := table.Target("weather")
	require.True(t, ok)
	assert.Equal(t, "weather", tg.Label(lang.English))
	assert.Equal(t, "मौसम", tg.Label(lang.Hindi))
	assert.Equal(t, "వాతావరణం", tg.Label(lang.Telugu))
	assert.Equal(t, "weather", tg.Label(lang.Code("fr")))
}

func TestDefaultTableCoversEveryLanguage(t *testing.T) {
	table := DefaultTable()

	for _, c := range lang.All {
		routes := table.Routes[c]
		require.NotEmpty(t, routes, "lang=%s", c)

		seen := make(map[string]bool)
		for _, rt := range routes {
			seen[rt.Target] = true
		}
		for _, tg := range table.Targets {
			assert.True(t, seen[tg.ID], "lang=%s has no route for %s", c, tg.ID)
		}
	}
}

func TestLoadTableValidation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		err  string
	}{
		{
			name: "empty",
			yaml: "",
			err:  "empty route table",
		},
		{
			name: "unknown target",
			yaml: `
targets:
  - id: a
    path: /a
    labels: {en: a, hi: a, te: a}
routes:
  en:
    - target: b
      keywords: [b]
`,
			err: `unknown target "b"`,
		},
		{
			name: "missing label",
			yaml: `
targets:
  - id: a
    path: /a
    labels: {en: a, hi: a}
`,
			err: "missing te label",
		},
		{
			name: "blank keyword",
			yaml: `
targets:
  - id: a
    path: /a
    labels: {en: a, hi: a, te: a}
routes:
  hi:
    - target: a
      keywords: ["  "]
`,
			err: "empty keyword",
		},
		{
			name: "unsupported language",
			yaml: `
targets:
  - id: a
    path: /a
    labels: {en: a, hi: a, te: a}
routes:
  fr:
    - target: a
      keywords: [a]
`,
			err: `unsupported language "fr"`,
		},
		{
			name: "unknown field",
			yaml: `
targets:
  - id: a
    route: /a
`,
			err: "decode route table",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadTable(strings.NewReader(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.err)
		})
	}
}
