package sms

import (
	"context"
	"errors"
	"fmt"

	"github.com/arsmn/go-smsir/smsir"

	"github.com/clinicadesk/clinica_backend/config"
)

// Param is one named value substituted into an sms.ir template.
type Param struct {
	Key   string
	Value string
}

// Sender sends templated messages. *Client implements it.
type Sender interface {
	SendTemplate(ctx context.Context, phone, templateID string, params ...Param) error
	IsEnabled() bool
}

// Client sends SMS through sms.ir. A disabled client accepts and drops everything.
type Client struct {
	client  *smsir.Client
	region  string
	enabled bool
}

func NewFromConfig(cfg config.SMSConfig) (*Client, error) {
	if !cfg.Enabled {
		return &Client{region: cfg.DefaultRegion}, nil
	}
	if cfg.SMSIR.APIKey == "" {
		return nil, errors.New("sms.ir API key required when SMS enabled")
	}
	return &Client{
		client:  smsir.NewClient().WithAuthentication(cfg.SMSIR.APIKey, cfg.SMSIR.SecretKey),
		region:  cfg.DefaultRegion,
		enabled: true,
	}, nil
}

// SendTemplate normalises phone to E.164 and sends templateID filled with params.
func (c *Client) SendTemplate(ctx context.Context, phone, templateID string, params ...Param) error {
	if !c.enabled {
		return nil
	}
	if templateID == "" {
		return errors.New("template ID is required")
	}
	mobile, err := NormalizePhone(phone, c.region)
	if err != nil {
		return err
	}

	req := &smsir.UltraFastSendRequest{
		Mobile:     mobile,
		TemplateID: templateID,
		Parameters: make([]smsir.UltraFastParameter, 0, len(params)),
	}
	for _, p := range params {
		req.Parameters = append(req.Parameters, smsir.UltraFastParameter{Key: p.Key, Value: p.Value})
	}

	if _, err := c.client.Verification.UltraFastSend(ctx, req); err != nil {
		return fmt.Errorf("sms.ir send failed: %w", err)
	}
	return nil
}

func (c *Client) IsEnabled() bool {
	return c.enabled
}
