package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/authkeeper/internal/timex"
)

// JsonConfig is the on-disk shape of the config file. Durations accept
// strings such as "15m" or integer nanoseconds.
type JsonConfig struct {
	Environment      string `json:"environment"`
	EndpointAddrGRPC string `json:"endpoint_addr_grpc"`
	DatabaseDSN      string `json:"database_dsn"`

	AccessSecret                 string         `json:"access_secret"`
	RefreshSecret                string         `json:"refresh_secret"`
	AccessTokenValidityDuration  timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration timex.Duration `json:"refresh_token_validity_duration"`
	VerificationCodeValidity     timex.Duration `json:"verification_code_validity"`
	ResetTokenValidity           timex.Duration `json:"reset_token_validity"`
	MinPasswordLength            int            `json:"min_password_length"`
	RevokeFamilyOnReuse          bool           `json:"revoke_family_on_reuse"`
	PurgeInterval                timex.Duration `json:"purge_interval"`

	LogLevel  string `json:"log_level"`
	LogFormat string `json:"log_format"`

	MailSender         string `json:"mail_sender"`
	MailFromAddress    string `json:"mail_from_address"`
	MailFromName       string `json:"mail_from_name"`
	SESRegion          string `json:"ses_region"`
	SESEndpoint        string `json:"ses_endpoint"`
	SESAccessKeyID     string `json:"ses_access_key_id"`
	SESSecretAccessKey string `json:"ses_secret_access_key"`
	FrontendURL        string `json:"frontend_url"`
}

// parseJSON overlays the file at path onto config. Keys absent from the file
// keep their current values.
func parseJSON(config *Config, path string) error {
	file, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	c := toJSON(config)
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	fromJSON(config, c)
	return nil
}

func toJSON(c *Config) *JsonConfig {
	return &JsonConfig{
		Environment:                  c.Environment,
		EndpointAddrGRPC:             c.EndpointAddrGRPC,
		DatabaseDSN:                  c.DatabaseDSN,
		AccessSecret:                 c.AccessSecret,
		RefreshSecret:                c.RefreshSecret,
		AccessTokenValidityDuration:  timex.Duration{Duration: c.AccessTokenValidityDuration},
		RefreshTokenValidityDuration: timex.Duration{Duration: c.RefreshTokenValidityDuration},
		VerificationCodeValidity:     timex.Duration{Duration: c.VerificationCodeValidity},
		ResetTokenValidity:           timex.Duration{Duration: c.ResetTokenValidity},
		MinPasswordLength:            c.MinPasswordLength,
		RevokeFamilyOnReuse:          c.RevokeFamilyOnReuse,
		PurgeInterval:                timex.Duration{Duration: c.PurgeInterval},
		LogLevel:                     c.LogLevel,
		LogFormat:                    c.LogFormat,
		MailSender:                   c.MailSender,
		MailFromAddress:              c.MailFromAddress,
		MailFromName:                 c.MailFromName,
		SESRegion:                    c.SESRegion,
		SESEndpoint:                  c.SESEndpoint,
		SESAccessKeyID:               c.SESAccessKeyID,
		SESSecretAccessKey:           c.SESSecretAccessKey,
		FrontendURL:                  c.FrontendURL,
	}
}

func fromJSON(c *Config, j *JsonConfig) {
	c.Environment = j.Environment
	c.EndpointAddrGRPC = j.EndpointAddrGRPC
	c.DatabaseDSN = j.DatabaseDSN
	c.AccessSecret = j.AccessSecret
	c.RefreshSecret = j.RefreshSecret
	c.AccessTokenValidityDuration = j.AccessTokenValidityDuration.Duration
	c.RefreshTokenValidityDuration = j.RefreshTokenValidityDuration.Duration
	c.VerificationCodeValidity = j.VerificationCodeValidity.Duration
	c.ResetTokenValidity = j.ResetTokenValidity.Duration
	c.MinPasswordLength = j.MinPasswordLength
	c.RevokeFamilyOnReuse = j.RevokeFamilyOnReuse
	c.PurgeInterval = j.PurgeInterval.Duration
	c.LogLevel = j.LogLevel
	c.LogFormat = j.LogFormat
	c.MailSender = j.MailSender
	c.MailFromAddress = j.MailFromAddress
	c.MailFromName = j.MailFromName
	c.SESRegion = j.SESRegion
	c.SESEndpoint = j.SESEndpoint
	c.SESAccessKeyID = j.SESAccessKeyID
	c.SESSecretAccessKey = j.SESSecretAccessKey
	c.FrontendURL = j.FrontendURL
}
