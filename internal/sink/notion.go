package sink

import (
	"context"
	"strings"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lead-validator/internal/model"
	"github.com/sells-group/lead-validator/pkg/notion"
)

// Review queue property names.
const (
	propName          = "Name"
	propRecording     = "Recording"
	propPhone         = "Phone"
	propStatus        = "Status"
	propConfidence    = "Confidence"
	propReasons       = "Review Reasons"
	propMissing       = "Missing Information"
	propDiscrepancies = "Discrepancies"
	propInterest      = "Interest"
	propRunID         = "Run ID"
	propCost          = "Cost"
	propReviewed      = "Reviewed"
)

// NotionReview upserts results that need a human into a Notion database,
// keyed by recording name.
type NotionReview struct {
	client notion.Client
	dbID   string
}

// NewNotionReview creates a review queue sink.
func NewNotionReview(client notion.Client, dbID string) *NotionReview {
	return &NotionReview{client: client, dbID: dbID}
}

// Name implements Sink.
func (n *NotionReview) Name() string { return "notion" }

// Accepts implements Sink.
func (n *NotionReview) Accepts(res *model.ValidationResult) bool {
	return res.NeedsManualReview || res.Status == model.ClassificationNeedsReview
}

// Deliver implements Sink.
func (n *NotionReview) Deliver(ctx context.Context, d Delivery) error {
	id, created, err := notion.Upsert(ctx, n.client, n.dbID, propRecording, d.Recording, reviewProperties(d))
	if err != nil {
		return eris.Wrap(err, "sink: notion review")
	}
	zap.L().Info("sink: review queued",
		zap.String("recording", d.Recording),
		zap.String("page_id", id),
		zap.Bool("created", created),
	)
	return nil
}

func reviewProperties(d Delivery) notionapi.Properties {
	res := d.Result
	title := res.FullName()
	if title == "" {
		title = d.Recording
	}
	return notionapi.Properties{
		propName:          notion.Title(title),
		propPhone:         notion.RichText(res.PhoneNumber),
		propStatus:        notion.Select(string(res.Status)),
		propConfidence:    notion.Number(res.ConfidenceScore),
		propReasons:       notion.RichText(strings.Join(res.ManualReviewReasons, "\n")),
		propMissing:       notion.RichText(strings.Join(res.MissingInformation, "\n")),
		propDiscrepancies: notion.RichText(strings.Join(res.DataDiscrepancies, "\n")),
		propInterest:      notion.RichText(interestSummary(res)),
		propRunID:         notion.RichText(d.RunID),
		propCost:          notion.Number(d.Cost),
		propReviewed:      notion.Checkbox(false),
	}
}
