package domainanalysis

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/bedrock"
)

const defaultVerdictPrompt = `You assess whether a domain is likely to host malicious, scam, or ` +
	`phishing content based only on its name and any metadata provided. Respond with exactly one ` +
	`word: clean, suspicious, or malicious.`

// llmVerdict asks a Bedrock-hosted model for a coarse threat classification
// of a domain, standing in for a commercial sandbox/hybrid-analysis
// verdict. Missing AWS credentials or any other request failure are not an
// error: llmVerdict returns "" (no verdict), which the scorer treats as a
// neutral signal, so one missing signal never blocks scoring. A reply that
// names none of the three words is classified "suspicious".
func llmVerdict(ctx context.Context, domain string, timeout time.Duration) string {
	region := os.Getenv("AWS_REGION")
	if region == "" {
		region = "eu-west-1"
	}
	model := os.Getenv("BEDROCK_MODEL")
	if model == "" {
		model = "global.anthropic.claude-sonnet-4-5-20250929-v1:0"
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client := anthropic.NewClient(bedrock.WithLoadDefaultConfig(ctx))

	resp, err := client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: 8,
		System: []anthropic.TextBlockParam{
			{Text: defaultVerdictPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock("Domain: " + domain)),
		},
	})
	if err != nil || len(resp.Content) == 0 {
		return ""
	}

	verdict := strings.ToLower(strings.TrimSpace(resp.Content[0].Text))
	switch {
	case strings.Contains(verdict, "malicious"):
		return "malicious"
	case strings.Contains(verdict, "clean"):
		return "clean"
	default:
		return "suspicious"
	}
}
