// Package telegram delivers freshly composed plans to a Telegram chat.
// Messages use MarkdownV2 and delivery is retried with linear backoff.
package telegram

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rewired-gh/ssq-planner/internal/models"
)

// sender is the part of tgbotapi.BotAPI the client needs.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Client handles Telegram notifications
type Client struct {
	bot            sender
	chatID         int64
	maxRetries     int
	retryDelayBase time.Duration
}

// NewClient creates a new Telegram client
func NewClient(botToken, chatID string, maxRetries int, retryDelayBase time.Duration) (*Client, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}
	return newClient(bot, chatID, maxRetries, retryDelayBase)
}

func newClient(bot sender, chatID string, maxRetries int, retryDelayBase time.Duration) (*Client, error) {
	chatIDInt, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid chat ID: %w", err)
	}

	if maxRetries <= 0 {
		maxRetries = 3
	}
	if retryDelayBase <= 0 {
		retryDelayBase = time.Second
	}

	return &Client{
		bot:            bot,
		chatID:         chatIDInt,
		maxRetries:     maxRetries,
		retryDelayBase: retryDelayBase,
	}, nil
}

// SendPlan posts the plan built after the given latest draw.
func (c *Client) SendPlan(plan *models.Plan, latest *models.DrawRecord) error {
	return c.send(formatPlan(plan, latest))
}

// SendError reports a failed sync or planning run.
func (c *Client) SendError(title string, err error) error {
	return c.send(fmt.Sprintf("⚠️ *%s*\n`%s`", escapeMarkdownV2(title), escapeCode(err.Error())))
}

// SendRecovery reports that syncing works again after failed runs.
func (c *Client) SendRecovery(failedRuns int) error {
	return c.send(fmt.Sprintf("✅ *Archive sync recovered* after %d failed run\\(s\\)", failedRuns))
}

func (c *Client) send(text string) error {
	msg := tgbotapi.NewMessage(c.chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdownV2

	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		_, err := c.bot.Send(msg)
		if err == nil {
			return nil
		}
		lastErr = err
		time.Sleep(c.retryDelayBase * time.Duration(i+1))
	}

	return fmt.Errorf("failed to send message after %d retries: %w", c.maxRetries, lastErr)
}

func formatPlan(plan *models.Plan, latest *models.DrawRecord) string {
	var b strings.Builder
	b.WriteString("🎱 *New Double Color Ball plan*\n\n")

	if latest != nil {
		fmt.Fprintf(&b, "📅 Latest draw %s \\(%s\\): %s\n\n",
			escapeMarkdownV2(latest.Period),
			escapeMarkdownV2(latest.Date),
			formatNumbers(latest.Mains, []int{latest.Special}))
	}

	b.WriteString("*Singles*\n")
	for i, t := range plan.Singles {
		fmt.Fprintf(&b, "%d\\. %s  _%s_\n", i+1, formatNumbers(t.Mains, t.Specials), escapeMarkdownV2(t.Strategy))
	}

	fmt.Fprintf(&b, "\n*7\\+1*  %s\n", formatNumbers(plan.Compound7.Mains, plan.Compound7.Specials))
	fmt.Fprintf(&b, "*6\\+2*  %s\n", formatNumbers(plan.Compound6x2.Mains, plan.Compound6x2.Specials))
	fmt.Fprintf(&b, "\nSeed: %s \\(history score %d, %d draws\\)",
		escapeMarkdownV2(plan.SeedStrategy), plan.SeedHistoryScore, plan.Draws)

	return b.String()
}

// formatNumbers renders "01 02 03 04 05 06 | 07" in a code span.
func formatNumbers(mains, specials []int) string {
	return "`" + joinPadded(mains) + " | " + joinPadded(specials) + "`"
}

func joinPadded(nums []int) string {
	parts := make([]string, len(nums))
	for i, n := range nums {
		parts[i] = fmt.Sprintf("%02d", n)
	}
	return strings.Join(parts, " ")
}

// escapeMarkdownV2 escapes special characters for Telegram MarkdownV2
func escapeMarkdownV2(text string) string {
	var b strings.Builder
	for _, char := range text {
		switch char {
		case '_', '*', '[', ']', '(', ')', '~', '`', '>', '#', '+', '-', '=', '|', '{', '}', '.', '!', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(char)
	}
	return b.String()
}

// escapeCode escapes text placed inside a code span.
func escapeCode(text string) string {
	return strings.NewReplacer("\\", "\\\\", "`", "\\`").Replace(text)
}
