package migrations

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// legacyAttachment is one element of the old messages.attachments JSON array.
type legacyAttachment struct {
	Type         string  `json:"type"`
	Path         string  `json:"path"`
	OriginalName *string `json:"originalName"`
	Ephemeral    bool    `json:"ephemeral"`
	IsLoading    bool    `json:"isLoading"`
}

type extractedAttachment struct {
	ID string
	legacyAttachment
}

type attachmentLink struct {
	MessageID    string
	AttachmentID string
}

// planAttachmentExtraction dedupes attachments by path, first occurrence
// wins. Elements without a path or type, and unparseable columns, are left
// to the archive column.
func planAttachmentExtraction(rows map[string]string, order []string, newID func(path string) string) ([]extractedAttachment, []attachmentLink) {
	byPath := make(map[string]string)
	seenLink := make(map[attachmentLink]bool)
	var (
		atts  []extractedAttachment
		links []attachmentLink
	)
	for _, messageID := range order {
		var items []legacyAttachment
		if err := json.Unmarshal([]byte(rows[messageID]), &items); err != nil {
			continue
		}
		for _, item := range items {
			if item.Path == "" || item.Type == "" {
				continue
			}
			id, ok := byPath[item.Path]
			if !ok {
				id = newID(item.Path)
				byPath[item.Path] = id
				atts = append(atts, extractedAttachment{ID: id, legacyAttachment: item})
			}
			link := attachmentLink{MessageID: messageID, AttachmentID: id}
			if !seenLink[link] {
				seenLink[link] = true
				links = append(links, link)
			}
		}
	}
	return atts, links
}

func extractLegacyAttachments(ctx context.Context, tx *gorm.DB) error {
	has, err := HasColumn(tx, "messages", "attachments")
	if err != nil || !has {
		return err
	}

	rows, err := tx.Raw("SELECT id, attachments FROM messages WHERE attachments IS NOT NULL ORDER BY created_at, id").Rows()
	if err != nil {
		return errors.Wrap(err, "read message attachments")
	}
	defer rows.Close()

	values := make(map[string]string)
	var order []string
	for rows.Next() {
		var (
			id  string
			raw sql.NullString
		)
		if err := rows.Scan(&id, &raw); err != nil {
			return errors.Wrap(err, "scan message attachments")
		}
		values[id] = raw.String
		order = append(order, id)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	atts, links := planAttachmentExtraction(values, order, func(string) string { return uuid.NewString() })
	for _, a := range atts {
		if err := tx.Exec(
			"INSERT INTO attachments (id, type, path, is_loading, ephemeral, original_name) VALUES (?, ?, ?, ?, ?, ?)",
			a.ID, a.Type, a.Path, a.IsLoading, a.Ephemeral, a.OriginalName,
		).Error; err != nil {
			return errors.Wrapf(err, "insert attachment %s", a.Path)
		}
	}
	for _, l := range links {
		if err := tx.Exec(
			"INSERT OR IGNORE INTO message_attachments (message_id, attachment_id) VALUES (?, ?)",
			l.MessageID, l.AttachmentID,
		).Error; err != nil {
			return errors.Wrapf(err, "link attachment to %s", l.MessageID)
		}
	}
	return nil
}
