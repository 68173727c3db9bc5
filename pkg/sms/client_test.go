package sms

import (
	"context"
	"errors"
	"testing"

	"github.com/clinicadesk/clinica_backend/config"
)

func TestNewFromConfig(t *testing.T) {
	tests := []struct {
		name        string
		cfg         config.SMSConfig
		wantEnabled bool
		wantErr     bool
	}{
		{"disabled", config.SMSConfig{}, false, false},
		{"enabled without api key", config.SMSConfig{Enabled: true}, false, true},
		{"enabled", config.SMSConfig{Enabled: true, SMSIR: config.SMSIRConfig{APIKey: "key", SecretKey: "secret"}}, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewFromConfig(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewFromConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && client.IsEnabled() != tt.wantEnabled {
				t.Errorf("IsEnabled() = %v, want %v", client.IsEnabled(), tt.wantEnabled)
			}
		})
	}
}

func TestSendTemplateDisabled(t *testing.T) {
	client := &Client{}
	if err := client.SendTemplate(context.Background(), "", "", Param{Key: "name", Value: "Ana"}); err != nil {
		t.Errorf("disabled SendTemplate() error: %v", err)
	}
}

func TestSendTemplateValidation(t *testing.T) {
	client := &Client{enabled: true, region: "BR"}

	tests := []struct {
		name       string
		phone      string
		templateID string
		wantPhone  bool
	}{
		{"missing template", "+5511961234567", "", false},
		{"empty phone", "", "tpl", true},
		{"garbage phone", "12", "tpl", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := client.SendTemplate(context.Background(), tt.phone, tt.templateID)
			if err == nil {
				t.Fatal("SendTemplate() error = nil")
			}
			if errors.Is(err, ErrInvalidPhone) != tt.wantPhone {
				t.Errorf("errors.Is(err, ErrInvalidPhone) = %v, err = %v", !tt.wantPhone, err)
			}
		})
	}
}

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		raw     string
		region  string
		want    string
		wantErr bool
	}{
		{"+55 11 96123-4567", "BR", "+5511961234567", false},
		{"(11) 96123-4567", "BR", "+5511961234567", false},
		{"+1 650-253-0000", "BR", "+16502530000", false},
		{"1234", "BR", "", true},
		{"not a phone", "BR", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := NormalizePhone(tt.raw, tt.region)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NormalizePhone() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("NormalizePhone() = %q, want %q", got, tt.want)
			}
		})
	}
}
