package storage

import (
	"crypto/sha1"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

// Cloudinary configuration via environment variables:
// CLOUDINARY_CLOUD_NAME, CLOUDINARY_API_KEY, CLOUDINARY_API_SECRET,
// CLOUDINARY_FOLDER (optional). Captured once at startup so nothing reads
// env vars mid-request.
type UploadConfig struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
	Client    *http.Client
}

func LoadUploadConfig() UploadConfig {
	return UploadConfig{
		CloudName: os.Getenv("CLOUDINARY_CLOUD_NAME"),
		APIKey:    os.Getenv("CLOUDINARY_API_KEY"),
		APISecret: os.Getenv("CLOUDINARY_API_SECRET"),
		Folder:    os.Getenv("CLOUDINARY_FOLDER"),
		Client:    &http.Client{Timeout: 30 * time.Second},
	}
}

// StoredMedia is what the messaging core attaches to a message. The core
// never inspects file bytes beyond the data-URI header.
type StoredMedia struct {
	URL       string
	Mime      string
	SizeBytes int64
}

// mimeAllowed matches a concrete mime type against allow-list patterns such
// as "image/*" or "application/pdf".
func mimeAllowed(mime string, allowed []string) bool {
	for _, pattern := range allowed {
		if pattern == mime {
			return true
		}
		if strings.HasSuffix(pattern, "/*") &&
			strings.HasPrefix(mime, strings.TrimSuffix(pattern, "*")) {
			return true
		}
	}
	return false
}

// dataURIMime extracts the mime type from a "data:<mime>;base64," prefix.
func dataURIMime(src string) string {
	if !strings.HasPrefix(src, "data:") {
		return ""
	}
	end := strings.IndexAny(src, ";,")
	if end == -1 {
		return ""
	}
	return src[len("data:"):end]
}

// UploadBase64Media stores a base64 data URI on Cloudinary and returns the
// stored URL with mime/size metadata. Returns nil when the payload is
// rejected (bad mime, missing config, upstream failure).
func (c UploadConfig) UploadBase64Media(base64Src string, publicID string, allowed []string) *StoredMedia {
	if base64Src == "" {
		fmt.Printf("ERROR: Empty media payload\n")
		return nil
	}

	mime := dataURIMime(base64Src)
	if mime == "" || !mimeAllowed(mime, allowed) {
		fmt.Printf("ERROR: Rejected media mime type %q\n", mime)
		return nil
	}

	i := strings.Index(base64Src, ",")
	payload := base64Src
	if i != -1 {
		payload = base64Src[i+1:]
	}
	decoded, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		fmt.Printf("ERROR: Invalid base64 media payload: %v\n", err)
		return nil
	}

	if c.CloudName == "" || c.APIKey == "" || c.APISecret == "" {
		fmt.Printf("ERROR: Missing Cloudinary env vars\n")
		return nil
	}

	resource := "raw"
	switch {
	case strings.HasPrefix(mime, "image/"):
		resource = "image"
	case strings.HasPrefix(mime, "video/"), strings.HasPrefix(mime, "audio/"):
		// Cloudinary stores audio under the video resource type
		resource = "video"
	}
	endpoint := "https://api.cloudinary.com/v1_1/" + c.CloudName + "/" + resource + "/upload"

	finalPublicID := publicID
	if c.Folder != "" {
		finalPublicID = c.Folder + "/" + publicID
	}

	form := url.Values{}
	form.Add("file", "data:"+mime+";base64,"+payload)
	form.Add("api_key", c.APIKey)
	form.Add("public_id", finalPublicID)

	timestamp := fmt.Sprintf("%d", time.Now().Unix())
	form.Add("timestamp", timestamp)

	// Cloudinary signed uploads require a SHA1 over the sorted params + secret
	signatureString := fmt.Sprintf("public_id=%s&timestamp=%s%s", finalPublicID, timestamp, c.APISecret)
	signature := fmt.Sprintf("%x", sha1.Sum([]byte(signatureString)))
	form.Add("signature", signature)

	req, err := http.NewRequest("POST", endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		fmt.Printf("ERROR: Failed to create upload request: %v\n", err)
		return nil
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}
	res, err := client.Do(req)
	if err != nil {
		fmt.Printf("ERROR: Upload request failed: %v\n", err)
		return nil
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		fmt.Printf("ERROR: Failed to read upload response: %v\n", err)
		return nil
	}
	if res.StatusCode != 200 {
		fmt.Printf("ERROR: Upload failed with status %d: %s\n", res.StatusCode, string(body))
		return nil
	}

	var cloudRes struct {
		SecureURL string `json:"secure_url"`
		URL       string `json:"url"`
		Error     struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &cloudRes); err != nil {
		fmt.Printf("ERROR: Failed to parse upload response: %v\n", err)
		return nil
	}
	if cloudRes.Error.Message != "" {
		fmt.Printf("ERROR: Cloudinary error: %s\n", cloudRes.Error.Message)
		return nil
	}

	urlOut := cloudRes.SecureURL
	if urlOut == "" {
		urlOut = cloudRes.URL
	}
	if urlOut == "" {
		fmt.Printf("ERROR: No URL returned from Cloudinary\n")
		return nil
	}

	return &StoredMedia{URL: urlOut, Mime: mime, SizeBytes: int64(len(decoded))}
}
