package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/xsspy/xsspy/internal/config"
)

const webhookTopFindings = 5

// SendWebhook posts a Discord/Slack compatible summary of result.
// Nothing is sent for a scan without findings.
func SendWebhook(ctx context.Context, result *config.ScanResult, webhookURL string) error {
	if webhookURL == "" || len(result.Findings) == 0 {
		return nil
	}

	content := fmt.Sprintf("**xsspy scan completed**\nTarget: %s\nVulnerabilities Found: **%d**\nDuration: %s",
		result.TargetURL, len(result.Findings), result.ScanDuration)

	content += "\n\n**Top Findings:**"
	for i, f := range result.Findings {
		if i >= webhookTopFindings {
			break
		}
		content += fmt.Sprintf("\n- %s: `%s`", f.Parameter, f.Payload)
	}

	body, err := json.Marshal(map[string]string{"content": content})
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("invalid webhook URL: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook failed with status: %d", resp.StatusCode)
	}
	return nil
}
