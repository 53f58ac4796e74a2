package bootstrap

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	appconfig "github.com/Schofield90/whatsapp-lead-system/internal/config"
	"github.com/Schofield90/whatsapp-lead-system/internal/conversation"
	"github.com/Schofield90/whatsapp-lead-system/pkg/logging"
)

// LLM providers selectable through LLM_PROVIDER.
const (
	ProviderAnthropic = "anthropic"
	ProviderBedrock   = "bedrock"
	ProviderGemini    = "gemini"
)

// BuildLLMClient returns the model client for cfg.LLMProvider along with the
// model id it will call. awsCfg is only needed for Bedrock.
func BuildLLMClient(ctx context.Context, cfg *appconfig.Config, awsCfg *aws.Config, logger *logging.Logger) (conversation.LLMClient, string, error) {
	if cfg == nil {
		return nil, "", fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	switch cfg.LLMProvider {
	case "", ProviderAnthropic:
		client := conversation.NewAnthropicClient(cfg.AnthropicAPIKey, cfg.AnthropicModel, cfg.LLMTimeout)
		if !client.IsConfigured() {
			logger.Warn("no Anthropic API key configured; every reply will fall back to the apology message")
		}
		logger.Info("using LLM provider", "provider", ProviderAnthropic, "model", cfg.AnthropicModel)
		return client, cfg.AnthropicModel, nil
	case ProviderBedrock:
		if cfg.BedrockModelID == "" {
			return nil, "", fmt.Errorf("bootstrap: BEDROCK_MODEL_ID is required for the bedrock provider")
		}
		if awsCfg == nil {
			return nil, "", fmt.Errorf("bootstrap: aws config is required for the bedrock provider")
		}
		logger.Info("using LLM provider", "provider", ProviderBedrock, "model", cfg.BedrockModelID)
		return conversation.NewBedrockLLMClient(bedrockruntime.NewFromConfig(*awsCfg), cfg.BedrockModelID), cfg.BedrockModelID, nil
	case ProviderGemini:
		client, err := conversation.NewGeminiLLMClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, "", fmt.Errorf("bootstrap: %w", err)
		}
		logger.Info("using LLM provider", "provider", ProviderGemini, "model", cfg.GeminiModel)
		return client, cfg.GeminiModel, nil
	default:
		return nil, "", fmt.Errorf("bootstrap: unknown LLM provider %q", cfg.LLMProvider)
	}
}

// PromptBudget derives the prompt size policy from config.
func PromptBudget(cfg *appconfig.Config) conversation.PromptBudget {
	budget := conversation.DefaultPromptBudget()
	if cfg.PromptWarnChars > 0 {
		budget.WarnChars = cfg.PromptWarnChars
	}
	if cfg.PromptMaxChars > 0 {
		budget.MaxChars = cfg.PromptMaxChars
	}
	if cfg.MaxCostPerCallUSD > 0 {
		budget.MaxCostPerCallUSD = cfg.MaxCostPerCallUSD
	}
	if cfg.LLMMaxReplyTokens > 0 {
		budget.ReplyTokens = cfg.LLMMaxReplyTokens
	}
	budget.Pricing = Pricing(cfg)
	return budget
}

// Pricing returns the configured per-token prices, or the defaults.
func Pricing(cfg *appconfig.Config) conversation.Pricing {
	if cfg.InputCostPerMTok <= 0 || cfg.OutputCostPerMTok <= 0 {
		return conversation.DefaultPricing
	}
	return conversation.Pricing{InputPerMTok: cfg.InputCostPerMTok, OutputPerMTok: cfg.OutputCostPerMTok}
}
