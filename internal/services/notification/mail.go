package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"vaultledger/internal/config"
)

type mailAddress struct {
	Address string `json:"address"`
	Name    string `json:"name,omitempty"`
}

type mailRecipient struct {
	EmailAddress mailAddress `json:"email_address"`
}

type templateMail struct {
	TemplateKey string            `json:"mail_template_key"`
	From        mailAddress       `json:"from"`
	To          []mailRecipient   `json:"to"`
	MergeInfo   map[string]string `json:"merge_info"`
}

// MailSender delivers messages through the ZeptoMail template endpoint.
type MailSender struct {
	client *resty.Client
	from   mailAddress
}

func NewMailSender(cfg config.MailConfig) (*MailSender, error) {
	if cfg.APIKey == "" || cfg.FromEmail == "" {
		return nil, fmt.Errorf("mail sender requires an API key and a sender address")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	client := resty.New().
		SetBaseURL(cfg.APIURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json").
		SetHeader("Authorization", cfg.APIKey)

	return &MailSender{
		client: client,
		from:   mailAddress{Address: cfg.FromEmail, Name: cfg.FromName},
	}, nil
}

func (s *MailSender) Send(ctx context.Context, msg Message) error {
	if msg.Email == "" {
		return fmt.Errorf("account %d has no email address", msg.AccountID)
	}
	payload := templateMail{
		TemplateKey: msg.Template,
		From:        s.from,
		To:          []mailRecipient{{EmailAddress: mailAddress{Address: msg.Email, Name: msg.Name}}},
		MergeInfo:   msg.Variables,
	}

	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(payload).
		Post("/email/template")
	if err != nil {
		return fmt.Errorf("failed to send template mail: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("template mail rejected with status %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}
