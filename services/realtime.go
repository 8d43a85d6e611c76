package services

import (
	"bytes"
	"crypto/hmac"
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"
)

// RealtimeConfig holds the Pusher-protocol credentials, captured once at
// startup. Empty credentials disable the push path entirely; clients then
// rely on the polling fallback.
type RealtimeConfig struct {
	AppID   string
	Key     string
	Secret  string
	Cluster string
	// Host overrides the api-<cluster>.pusher.com default; used by tests.
	Host string
}

func LoadRealtimeConfig() RealtimeConfig {
	return RealtimeConfig{
		AppID:   os.Getenv("PUSHER_APP_ID"),
		Key:     os.Getenv("PUSHER_KEY"),
		Secret:  os.Getenv("PUSHER_SECRET"),
		Cluster: os.Getenv("PUSHER_CLUSTER"),
		Host:    os.Getenv("PUSHER_HOST"),
	}
}

// Realtime is the push half of delivery: fire-and-forget broadcasts over the
// Pusher HTTP API plus signed channel grants for private/presence
// subscriptions. Publish failures are logged and swallowed; chat stays
// usable without the push transport, and every consumer also polls
// MessageService.List with an after_id cursor.
type Realtime struct {
	cfg    RealtimeConfig
	client *http.Client
}

func NewRealtime(cfg RealtimeConfig) *Realtime {
	return &Realtime{
		cfg:    cfg,
		client: &http.Client{Timeout: 3 * time.Second},
	}
}

func (r *Realtime) Enabled() bool {
	return r.cfg.AppID != "" && r.cfg.Key != "" && r.cfg.Secret != ""
}

// Trigger broadcasts an event to the given channels. Best-effort: a dead or
// slow transport costs one log line, never an error to the caller.
func (r *Realtime) Trigger(channels []string, event string, data interface{}) {
	if !r.Enabled() {
		return
	}

	payload, err := json.Marshal(data)
	if err != nil {
		log.Printf("⚠️  realtime: marshal %s payload: %v", event, err)
		return
	}
	body, err := json.Marshal(map[string]interface{}{
		"name":     event,
		"channels": channels,
		"data":     string(payload),
	})
	if err != nil {
		log.Printf("⚠️  realtime: marshal %s body: %v", event, err)
		return
	}

	bodyMD5 := fmt.Sprintf("%x", md5.Sum(body))
	path := "/apps/" + r.cfg.AppID + "/events"

	query := url.Values{}
	query.Set("auth_key", r.cfg.Key)
	query.Set("auth_timestamp", fmt.Sprintf("%d", time.Now().Unix()))
	query.Set("auth_version", "1.0")
	query.Set("body_md5", bodyMD5)
	encoded := query.Encode() // sorted keys, required by the signature

	stringToSign := "POST\n" + path + "\n" + encoded
	signature := hmacSHA256(stringToSign, r.cfg.Secret)

	host := r.cfg.Host
	if host == "" {
		host = "https://api-" + r.cfg.Cluster + ".pusher.com"
	}
	endpoint := host + path + "?" + encoded + "&auth_signature=" + signature

	req, err := http.NewRequest(http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		log.Printf("⚠️  realtime: build %s request: %v", event, err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := r.client.Do(req)
	if err != nil {
		log.Printf("⚠️  realtime: trigger %s: %v", event, err)
		return
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		log.Printf("⚠️  realtime: trigger %s: status %d", event, res.StatusCode)
	}
}

// ChannelGrant is the signed response a client presents to subscribe to a
// private or presence channel.
type ChannelGrant struct {
	Auth        string `json:"auth"`
	ChannelData string `json:"channel_data,omitempty"`
}

// AuthChannel signs a subscription grant for socketID on channelName.
// userData is only set for presence channels and is embedded into the
// signature.
func (r *Realtime) AuthChannel(socketID, channelName string, userData interface{}) (ChannelGrant, error) {
	stringToSign := socketID + ":" + channelName
	grant := ChannelGrant{}

	if userData != nil {
		channelData, err := json.Marshal(userData)
		if err != nil {
			return grant, err
		}
		stringToSign += ":" + string(channelData)
		grant.ChannelData = string(channelData)
	}

	grant.Auth = r.cfg.Key + ":" + hmacSHA256(stringToSign, r.cfg.Secret)
	return grant, nil
}

func hmacSHA256(message, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(message))
	return hex.EncodeToString(mac.Sum(nil))
}
