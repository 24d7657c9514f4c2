// workers/webhook.go
package workers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"surf-leaderboard/models"
	"surf-leaderboard/utils"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	colorGold  = 0xFFD700
	colorBlue  = 0x3498DB
	colorGreen = 0x2ECC71
	colorRed   = 0xE74C3C
)

var titleCaser = cases.Title(language.English)

type embedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type embed struct {
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Color       int          `json:"color"`
	Fields      []embedField `json:"fields,omitempty"`
}

type webhookBody struct {
	Embeds []embed `json:"embeds"`
}

// postWebhook fires one embed at a webhook URL. An empty URL disables the
// hook; failures are logged, never retried.
func postWebhook(ctx context.Context, url string, e embed) {
	if url == "" {
		return
	}

	payload, err := json.Marshal(webhookBody{Embeds: []embed{e}})
	if err != nil {
		log.Printf("⚠️ webhook marshal failed: %v", err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(payload))
	if err != nil {
		log.Printf("⚠️ webhook request build failed: %v", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := utils.WebhookHTTPClient.Do(req)
	if err != nil {
		log.Printf("⚠️ webhook post failed: %v", err)
		return
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		log.Printf("⚠️ webhook returned %d: %s", resp.StatusCode, string(body))
	}
}

func (w *NotifyWorker) postRecordWebhook(ctx context.Context, url, kind, firstNote string, run *models.Run, prev *models.Run, color int) {
	e := embed{
		Title: fmt.Sprintf("%s — %s %s", kind, titleCaser.String(run.Section.Map), run.Section.Code),
		Color: color,
		Fields: []embedField{
			{Name: "New", Value: fmt.Sprintf("%s — %s", run.User.Name, FormatRunTime(run.Time)), Inline: true},
		},
	}

	if prev != nil {
		e.Fields = append(e.Fields, embedField{
			Name:   "Old",
			Value:  fmt.Sprintf("%s — %s", prev.User.Name, FormatRunTime(prev.Time)),
			Inline: true,
		})
		e.Description = fmt.Sprintf("Previous record stood for %s.",
			FormatDuration(run.CreatedAt.Sub(prev.CreatedAt)))
	} else {
		e.Description = firstNote
	}

	postWebhook(ctx, url, e)
}

func (w *NotifyWorker) postActivityWebhook(ctx context.Context, e embed) {
	postWebhook(ctx, w.WebhookActivity, e)
}

func titleEmbed(act *models.Activity) embed {
	color := colorGreen
	if *act.TitleNew < *act.TitleOld {
		color = colorRed
	}
	return embed{
		Title: "Title update",
		Description: fmt.Sprintf("**%s** is now **%s** (was %s)",
			act.User.Name, act.TitleNew.String(), act.TitleOld.String()),
		Color: color,
	}
}

func joinEmbed(act *models.Activity) embed {
	return embed{
		Title:       "New challenger",
		Description: fmt.Sprintf("**%s** joined the leaderboards", act.User.Name),
		Color:       colorBlue,
	}
}

// FormatRunTime renders a run time with the stored 3-decimal precision.
func FormatRunTime(t float64) string {
	return strconv.FormatFloat(t, 'f', 3, 64) + "s"
}

// FormatDuration expresses a gap in weeks, days, hours, mins and secs,
// omitting leading zero units.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = -d
	}
	secs := int64(d.Seconds())

	units := []struct {
		name string
		size int64
	}{
		{"week", 7 * 24 * 3600},
		{"day", 24 * 3600},
		{"hour", 3600},
		{"min", 60},
		{"sec", 1},
	}

	var parts []string
	for _, u := range units {
		n := secs / u.size
		secs %= u.size
		if n == 0 && len(parts) == 0 && u.name != "sec" {
			continue
		}
		label := u.name
		if n != 1 {
			label += "s"
		}
		parts = append(parts, fmt.Sprintf("%d %s", n, label))
	}
	return strings.Join(parts, " ")
}
