package advisor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/fairlend/advisor/internal/domain"
)

// historyWindow is how many recent turns the reply generator sees.
const historyWindow = 10

// ReplyGenerator produces the advisor's next utterance. Failures are
// reported so the orchestrator can fall back to a canned stage message.
type ReplyGenerator interface {
	Reply(ctx context.Context, conv *domain.Conversation, missing []string) (string, error)
}

// ModelReplyGenerator implements ReplyGenerator over a chat model.
type ModelReplyGenerator struct {
	model   model.BaseChatModel
	timeout time.Duration
}

// NewModelReplyGenerator wraps a chat model. timeout bounds each call;
// zero means 15 seconds.
func NewModelReplyGenerator(cm model.BaseChatModel, timeout time.Duration) *ModelReplyGenerator {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &ModelReplyGenerator{model: cm, timeout: timeout}
}

const replySystemPrompt = `You are a friendly, professional mortgage intake advisor.
Guide the borrower through their loan application one step at a time.
Ask for at most two missing pieces of information per message.
Never invent rates, approvals or legal terms; underwriting decides those.
Keep replies short and conversational.`

// Reply generates the advisor's next message from the recent history,
// the current stage and the still-missing fields for that stage.
func (g *ModelReplyGenerator) Reply(ctx context.Context, conv *domain.Conversation, missing []string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	messages := []*schema.Message{schema.SystemMessage(replySystemPrompt)}

	var b strings.Builder
	fmt.Fprintf(&b, "Current stage: %s.", conv.Stage)
	if len(missing) > 0 {
		fmt.Fprintf(&b, " Still needed for this stage: %s.", strings.Join(missing, ", "))
	} else {
		b.WriteString(" Nothing is missing for this stage; acknowledge progress and explain what happens next.")
	}
	messages = append(messages, schema.SystemMessage(b.String()))

	for _, turn := range conv.RecentTurns(historyWindow) {
		switch turn.Speaker {
		case domain.SpeakerUser:
			messages = append(messages, schema.UserMessage(turn.Text))
		case domain.SpeakerAdvisor:
			messages = append(messages, schema.AssistantMessage(turn.Text, nil))
		}
	}

	resp, err := g.model.Generate(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("generate reply: %w", err)
	}
	reply := strings.TrimSpace(resp.Content)
	if reply == "" {
		return "", fmt.Errorf("generate reply: empty completion")
	}
	return reply, nil
}

// channelGreetings are the fixed first messages per intake channel. They
// are templates, never generated.
var channelGreetings = map[domain.Channel]string{
	domain.ChannelWeb:   "Hi! I'm your loan advisor. I can walk you through a mortgage application in a few minutes. To get started, what's your name?",
	domain.ChannelSMS:   "Hi, this is your loan advisor. Reply with your name to start your mortgage application.",
	domain.ChannelVoice: "Thanks for calling. I'm your automated loan advisor and I'll help you start a mortgage application. May I have your name?",
	domain.ChannelEmail: "Hello, and thanks for reaching out about a mortgage. I'll guide you through the application. Could you share your name, email and phone number?",
}

// Greeting returns the fixed greeting for a channel.
func Greeting(channel domain.Channel) string {
	if g, ok := channelGreetings[channel]; ok {
		return g
	}
	return channelGreetings[domain.ChannelWeb]
}

// cannedReplies are the fallback messages used when the generation
// capability fails, keyed by stage.
var cannedReplies = map[domain.Stage]string{
	domain.StageGreeting:           "Thanks! Could you share your name, email and phone number so I can set up your file?",
	domain.StageQualification:      "Got it. To check what you qualify for, could you tell me your annual income and approximate credit score?",
	domain.StageDocumentCollection: "Thanks. Next we'll need a few documents: recent pay stubs, W-2 forms, tax returns, bank statements, a photo ID and proof of address.",
	domain.StageApplication:        "Great progress. Could you tell me about the property: what type it is and whether this is a purchase or a refinance?",
	domain.StageUnderwriting:       "Thanks, your file is complete and is now with underwriting. I'll let you know as soon as there's a decision.",
	domain.StageClosing:            "Congratulations! Your application is moving to closing. A loan officer will reach out to schedule the final steps.",
}

// CannedReply returns the fixed fallback message for a stage.
func CannedReply(stage domain.Stage) string {
	if m, ok := cannedReplies[stage]; ok {
		return m
	}
	return cannedReplies[domain.StageGreeting]
}

// nextStepsByStage is the fixed human-readable checklist returned with
// every turn result.
var nextStepsByStage = map[domain.Stage][]string{
	domain.StageGreeting: {
		"Share your full name",
		"Provide contact email and phone",
	},
	domain.StageQualification: {
		"Submit financial information",
		"Authorize credit check",
	},
	domain.StageDocumentCollection: {
		"Upload income documents",
		"Upload identification and proof of address",
	},
	domain.StageApplication: {
		"Describe the property and loan purpose",
		"Confirm loan amount and down payment",
	},
	domain.StageUnderwriting: {
		"Wait for the underwriting decision",
		"Respond promptly to any condition requests",
	},
	domain.StageClosing: {
		"Review closing disclosures",
		"Schedule the closing appointment",
	},
}

// NextSteps returns the checklist for a stage.
func NextSteps(stage domain.Stage) []string {
	if steps, ok := nextStepsByStage[stage]; ok {
		return steps
	}
	slog.Debug("no next steps for stage", "stage", stage)
	return nil
}
