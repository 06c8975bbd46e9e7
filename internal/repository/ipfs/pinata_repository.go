package ipfs

import (
	"blockRewards/domain"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pobyzaarif/goshortcute"
	"github.com/tidwall/gjson"
)

type PinataConfig struct {
	BaseURL      string
	GatewayURL   string
	APIKey       string
	SecretAPIKey string
	// EncryptionKey, when set, AES-CBC encrypts every payload before upload.
	EncryptionKey string
	Timeout       time.Duration
}

type PinataRepository struct {
	pinataConfig PinataConfig
	client       *http.Client
}

func NewPinataRepository(cfg PinataConfig) *PinataRepository {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &PinataRepository{
		pinataConfig: cfg,
		client:       &http.Client{Timeout: timeout},
	}
}

type encryptedPayload struct {
	Ciphertext string `json:"ciphertext"`
}

// Upload pins v as JSON and returns its content id.
func (r *PinataRepository) Upload(ctx context.Context, v interface{}) (string, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to marshal json payload: %w", err)
	}

	if r.pinataConfig.EncryptionKey != "" {
		ciphertext, err := goshortcute.AESCBCEncrypt(payload, []byte(r.pinataConfig.EncryptionKey))
		if err != nil {
			return "", fmt.Errorf("failed to encrypt payload: %w", err)
		}
		payload, err = json.Marshal(encryptedPayload{Ciphertext: goshortcute.StringtoBase64Encode(ciphertext)})
		if err != nil {
			return "", fmt.Errorf("failed to marshal json payload: %w", err)
		}
	}

	url := strings.TrimRight(r.pinataConfig.BaseURL, "/") + "/pinning/pinJSONToIPFS"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}

	req.Header.Add("Content-Type", "application/json")
	req.Header.Add("pinata_api_key", r.pinataConfig.APIKey)
	req.Header.Add("pinata_secret_api_key", r.pinataConfig.SecretAPIKey)

	body, err := r.do(req)
	if err != nil {
		return "", err
	}

	cid := gjson.GetBytes(body, "IpfsHash").String()
	if cid == "" {
		return "", fmt.Errorf("%w: pinata response without IpfsHash", domain.ErrExternalServiceUnavailable)
	}

	return cid, nil
}

// Fetch reads a pinned document from the gateway into out, decrypting it
// first when an encryption key is configured.
func (r *PinataRepository) Fetch(ctx context.Context, cid string, out interface{}) error {
	if strings.TrimSpace(cid) == "" {
		return fmt.Errorf("%w: cid is required", domain.ErrValidation)
	}

	url := strings.TrimRight(r.pinataConfig.GatewayURL, "/") + "/ipfs/" + cid
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	body, err := r.do(req)
	if err != nil {
		return err
	}

	if r.pinataConfig.EncryptionKey != "" {
		ciphertext := gjson.GetBytes(body, "ciphertext").String()
		if ciphertext == "" {
			return fmt.Errorf("%w: document is not encrypted", domain.ErrValidation)
		}
		plain, err := goshortcute.AESCBCDecrypt([]byte(goshortcute.StringtoBase64Decode(ciphertext)), []byte(r.pinataConfig.EncryptionKey))
		if err != nil {
			return fmt.Errorf("failed to decrypt document: %w", err)
		}
		body = []byte(plain)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode document: %w", err)
	}

	return nil
}

func (r *PinataRepository) do(req *http.Request) ([]byte, error) {
	res, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrExternalServiceUnavailable, err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrExternalServiceUnavailable, err)
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		msg := gjson.GetBytes(body, "error.reason").String()
		if msg == "" {
			msg = gjson.GetBytes(body, "error").String()
		}
		return nil, fmt.Errorf("%w: pinata returned %d %s", domain.ErrExternalServiceUnavailable, res.StatusCode, msg)
	}

	return body, nil
}
