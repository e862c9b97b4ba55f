package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const stripeAPIBase = "https://api.stripe.com/v1"

// 署名タイムスタンプの許容ずれ（リプレイ対策）
const signatureTolerance = 5 * time.Minute

type StripeProvider struct {
	secretKey     string
	webhookSecret string
	httpClient    *http.Client
	apiBase       string
	now           func() time.Time
}

func NewStripeProvider(secretKey string, webhookSecret string) *StripeProvider {
	return &StripeProvider{
		secretKey:     secretKey,
		webhookSecret: webhookSecret,
		httpClient:    &http.Client{Timeout: 10 * time.Second},
		apiBase:       stripeAPIBase,
		now:           time.Now,
	}
}

type stripeIntentResponse struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Status       string `json:"status"`
}

func (p *StripeProvider) CreateIntent(ctx context.Context, amountMinor int64, currency string, metadata map[string]string) (Intent, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(amountMinor, 10))
	form.Set("currency", currency)
	for k, v := range metadata {
		form.Set(fmt.Sprintf("metadata[%s]", k), v)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.apiBase+"/payment_intents", strings.NewReader(form.Encode()))
	if err != nil {
		return Intent{}, err
	}
	req.Header.Set("Authorization", "Bearer "+p.secretKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return Intent{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Intent{}, err
	}
	if resp.StatusCode != http.StatusOK {
		return Intent{}, fmt.Errorf("stripe create intent failed: status=%d body=%s", resp.StatusCode, body)
	}

	var out stripeIntentResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return Intent{}, err
	}
	if out.ID == "" {
		return Intent{}, fmt.Errorf("stripe create intent: empty id")
	}

	return Intent{ID: out.ID, ClientSecret: out.ClientSecret}, nil
}

type stripeEventPayload struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"object"`
	} `json:"data"`
}

// VerifyWebhookSignatureはStripe-Signatureヘッダを検証する。
// 形式は "t=<unix>,v1=<hmac-sha256 hex>"。署名対象は "<t>.<body>"。
func (p *StripeProvider) VerifyWebhookSignature(payload []byte, sigHeader string) (Event, error) {
	ts, sigs, err := parseSignatureHeader(sigHeader)
	if err != nil {
		return Event{}, ErrInvalidSignature
	}

	//古すぎるタイムスタンプはリプレイとして拒否
	eventTime := time.Unix(ts, 0)
	if p.now().Sub(eventTime) > signatureTolerance || eventTime.Sub(p.now()) > signatureTolerance {
		return Event{}, ErrInvalidSignature
	}

	mac := hmac.New(sha256.New, []byte(p.webhookSecret))
	mac.Write([]byte(strconv.FormatInt(ts, 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	expected := mac.Sum(nil)

	ok := false
	for _, s := range sigs {
		got, err := hex.DecodeString(s)
		if err != nil {
			continue
		}
		if hmac.Equal(expected, got) {
			ok = true
			break
		}
	}
	if !ok {
		return Event{}, ErrInvalidSignature
	}

	var ev stripeEventPayload
	if err := json.Unmarshal(payload, &ev); err != nil {
		return Event{}, fmt.Errorf("webhook payload: %w", err)
	}

	return Event{
		ID:       ev.ID,
		Type:     ev.Type,
		IntentID: ev.Data.Object.ID,
		Status:   ev.Data.Object.Status,
	}, nil
}

func parseSignatureHeader(header string) (int64, []string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return 0, nil, fmt.Errorf("empty signature header")
	}

	var ts int64 = -1
	var sigs []string

	for _, part := range strings.Split(header, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			v, err := strconv.ParseInt(kv[1], 10, 64)
			if err != nil {
				return 0, nil, err
			}
			ts = v
		case "v1":
			sigs = append(sigs, kv[1])
		}
	}

	if ts < 0 || len(sigs) == 0 {
		return 0, nil, fmt.Errorf("malformed signature header")
	}
	return ts, sigs, nil
}
