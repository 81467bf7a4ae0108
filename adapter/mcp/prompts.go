package mcp

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/mcp-go"
)

// RegisterPrompts registers MCP prompts for common subscription workflows.
func RegisterPrompts(srv *mcp.Server, deps ToolDependencies) error {
	if srv == nil {
		return fmt.Errorf("server is required")
	}

	srv.Prompt("choose_plan").
		Description("Compare the available plans and help pick one to purchase.").
		Handler(func(ctx context.Context, args map[string]string) (*mcp.PromptResult, error) {
			return &mcp.PromptResult{
				Description: "Choose a subscription plan",
				Messages: []mcp.PromptMessage{
					{
						Role: string(mcp.RoleUser),
						Content: mcp.TextContent{
							Type: "text",
							Text: `Help me decide whether and how to subscribe.

1. Read the subscriptions://state resource or call subscription.status.
2. If I am already subscribed, say so and stop.
3. Otherwise list the plans from subscription.plans with their prices and
   billing periods, and point out the cheapest option per month.

Only call subscription.buy after I confirm a plan. Use reset=true only if
I explicitly ask to start a new account.`,
						},
					},
				},
			}, nil
		})

	srv.Prompt("restore_access").
		Description("Restore credentials for an existing purchase on this device.").
		Handler(func(ctx context.Context, args map[string]string) (*mcp.PromptResult, error) {
			return &mcp.PromptResult{
				Description: "Restore subscription access",
				Messages: []mcp.PromptMessage{
					{
						Role: string(mcp.RoleUser),
						Content: mcp.TextContent{
							Type: "text",
							Text: `I already paid for a subscription but this device does not recognise it.

1. Call token.status to see whether a token is stored and encryption is available.
2. If encryption is unavailable, explain that credentials cannot be stored
   securely and stop.
3. Call subscription.recover and report the result, including any messages.`,
						},
					},
				},
			}, nil
		})

	return nil
}
