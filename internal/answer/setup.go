package answer

import (
	log "log/slog"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"mitravox/internal/config"
	"mitravox/internal/metrics"
	"mitravox/internal/proxy"
)

// FromConfig builds the answerer the configuration asks for.
func FromConfig(cfg *config.Config, m *metrics.Metrics) (Answerer, error) {
	if cfg.Answer == config.AnswerStatic {
		return Static{}, nil
	}

	httpClient, err := proxy.NewClient(cfg.Proxy)
	if err != nil {
		return nil, err
	}
	log.Debug("Loaded http client", "proxy", cfg.Proxy)

	client := openai.NewClient(
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(httpClient),
	)
	return NewLLM(NewOpenAI(client, cfg.GPT), WithMetrics(m)), nil
}
