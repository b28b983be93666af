package migrations

import (
	"context"
	"database/sql"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// rewriteNamespace seeds the uuid v5 ids of rewritten message sets, so the
// same legacy data always yields the same set ids.
var rewriteNamespace = uuid.MustParse("6f1c9a52-3d0b-4f7e-9c1a-8b2e5d4a7f10")

// LegacyMessage is a row of the parent-pointer message table.
type LegacyMessage struct {
	ID          string
	ChatID      string
	ParentID    *string
	Text        string
	Model       string
	Selected    *bool
	Attachments *string
	CreatedAt   string
}

// PlannedSet is a message set derived from legacy siblings.
type PlannedSet struct {
	ID        string
	ChatID    string
	ParentID  *string
	Type      string
	Level     int
	GroupKey  string
	CreatedAt string
}

// PlannedMessage is a legacy message placed into a set.
type PlannedMessage struct {
	LegacyMessage
	SetID    string
	Selected bool
}

type RewritePlan struct {
	Sets     []PlannedSet
	Messages []PlannedMessage
}

func roleClass(model string) string {
	if model == "user" {
		return "user"
	}
	return "ai"
}

// GroupLegacyMessages turns parent-pointer messages into message sets.
// Siblings sharing chat, parent, role class and depth form one set. A message
// whose parent is missing, lives in another chat, or lies on a cycle becomes a
// root of its chat. Every input message appears exactly once in the plan.
func GroupLegacyMessages(msgs []LegacyMessage) RewritePlan {
	ordered := make([]LegacyMessage, len(msgs))
	copy(ordered, msgs)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.ChatID != b.ChatID {
			return a.ChatID < b.ChatID
		}
		if a.CreatedAt != b.CreatedAt {
			return a.CreatedAt < b.CreatedAt
		}
		return a.ID < b.ID
	})

	byID := make(map[string]LegacyMessage, len(ordered))
	for _, m := range ordered {
		if _, dup := byID[m.ID]; !dup {
			byID[m.ID] = m
		}
	}

	validParent := func(m LegacyMessage) (string, bool) {
		if m.ParentID == nil || *m.ParentID == m.ID {
			return "", false
		}
		p, ok := byID[*m.ParentID]
		if !ok || p.ChatID != m.ChatID {
			return "", false
		}
		return p.ID, true
	}

	children := make(map[string][]string)
	for _, m := range ordered {
		if pid, ok := validParent(m); ok {
			children[pid] = append(children[pid], m.ID)
		}
	}

	type placement struct {
		parent string
		depth  int
	}
	placed := make(map[string]placement, len(ordered))
	var visitOrder []string

	walk := func(root string) {
		queue := []string{root}
		placed[root] = placement{depth: 0}
		for len(queue) > 0 {
			id := queue[0]
			queue = queue[1:]
			visitOrder = append(visitOrder, id)
			for _, child := range children[id] {
				if _, seen := placed[child]; seen {
					continue
				}
				placed[child] = placement{parent: id, depth: placed[id].depth + 1}
				queue = append(queue, child)
			}
		}
	}

	for _, m := range ordered {
		if _, ok := validParent(m); !ok {
			if _, seen := placed[m.ID]; !seen {
				walk(m.ID)
			}
		}
	}
	// Whatever is left hangs off a cycle; break it at the earliest message.
	for _, m := range ordered {
		if _, seen := placed[m.ID]; !seen {
			walk(m.ID)
		}
	}

	groupKey := func(m LegacyMessage) string {
		p := placed[m.ID]
		parent := p.parent
		if parent == "" {
			parent = "no_parent"
		}
		return strings.Join([]string{m.ChatID, parent, roleClass(m.Model), strconv.Itoa(p.depth)}, "|")
	}
	setID := func(key string) string {
		return uuid.NewSHA1(rewriteNamespace, []byte(key)).String()
	}

	sets := make(map[string]*PlannedSet)
	members := make(map[string][]LegacyMessage)
	var keys []string
	for _, id := range visitOrder {
		m := byID[id]
		key := groupKey(m)
		set, ok := sets[key]
		if !ok {
			set = &PlannedSet{
				ID:        setID(key),
				ChatID:    m.ChatID,
				Type:      roleClass(m.Model),
				Level:     placed[id].depth,
				GroupKey:  key,
				CreatedAt: m.CreatedAt,
			}
			if parent := placed[id].parent; parent != "" {
				pid := setID(groupKey(byID[parent]))
				set.ParentID = &pid
			}
			sets[key] = set
			keys = append(keys, key)
		}
		if m.CreatedAt < set.CreatedAt {
			set.CreatedAt = m.CreatedAt
		}
		members[key] = append(members[key], m)
	}

	sort.Slice(keys, func(i, j int) bool {
		a, b := sets[keys[i]], sets[keys[j]]
		if a.ChatID != b.ChatID {
			return a.ChatID < b.ChatID
		}
		if a.Level != b.Level {
			return a.Level < b.Level
		}
		return a.GroupKey < b.GroupKey
	})

	var plan RewritePlan
	for _, key := range keys {
		set := sets[key]
		plan.Sets = append(plan.Sets, *set)

		group := members[key]
		sort.Slice(group, func(i, j int) bool {
			if group[i].Model != group[j].Model {
				return group[i].Model < group[j].Model
			}
			return group[i].ID < group[j].ID
		})
		chosen := pickSelected(group, children)
		for _, m := range group {
			plan.Messages = append(plan.Messages, PlannedMessage{
				LegacyMessage: m,
				SetID:         set.ID,
				Selected:      m.ID == chosen,
			})
		}
	}
	return plan
}

// pickSelected expects group sorted by (model, id). A message that the
// conversation continued from wins, then the legacy flag, then the first.
func pickSelected(group []LegacyMessage, children map[string][]string) string {
	for _, m := range group {
		if len(children[m.ID]) > 0 {
			return m.ID
		}
	}
	for _, m := range group {
		if m.Selected != nil && *m.Selected {
			return m.ID
		}
	}
	return group[0].ID
}

func loadLegacyMessages(tx *gorm.DB, table string) ([]LegacyMessage, error) {
	rows, err := tx.Raw(
		"SELECT id, chat_id, parent_id, text, model, selected, attachments, CAST(created_at AS TEXT) FROM " + table,
	).Rows()
	if err != nil {
		return nil, errors.Wrap(err, "read legacy messages")
	}
	defer rows.Close()

	var out []LegacyMessage
	for rows.Next() {
		var (
			m           LegacyMessage
			parentID    sql.NullString
			selected    sql.NullBool
			attachments sql.NullString
			createdAt   sql.NullString
		)
		if err := rows.Scan(&m.ID, &m.ChatID, &parentID, &m.Text, &m.Model, &selected, &attachments, &createdAt); err != nil {
			return nil, errors.Wrap(err, "scan legacy message")
		}
		if parentID.Valid {
			m.ParentID = &parentID.String
		}
		if selected.Valid {
			m.Selected = &selected.Bool
		}
		if attachments.Valid {
			m.Attachments = &attachments.String
		}
		m.CreatedAt = createdAt.String
		out = append(out, m)
	}
	return out, errors.Wrap(rows.Err(), "iterate legacy messages")
}

// rebuildMessageSets populates message_sets and messages from the archived
// parent-pointer table.
func rebuildMessageSets(archive string) Step {
	return func(ctx context.Context, tx *gorm.DB) error {
		legacy, err := loadLegacyMessages(tx, archive)
		if err != nil {
			return err
		}
		plan := GroupLegacyMessages(legacy)

		for _, s := range plan.Sets {
			if err := tx.Exec(
				"INSERT INTO message_sets (id, chat_id, parent_id, type, created_at) VALUES (?, ?, ?, ?, COALESCE(NULLIF(?, ''), CURRENT_TIMESTAMP))",
				s.ID, s.ChatID, s.ParentID, s.Type, s.CreatedAt,
			).Error; err != nil {
				return errors.Wrapf(err, "insert set %s", s.ID)
			}
		}
		for _, m := range plan.Messages {
			if err := tx.Exec(
				"INSERT INTO messages (id, message_set_id, chat_id, text, model, selected, attachments, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, COALESCE(NULLIF(?, ''), CURRENT_TIMESTAMP))",
				m.ID, m.SetID, m.ChatID, m.Text, m.Model, m.Selected, m.Attachments, m.CreatedAt,
			).Error; err != nil {
				return errors.Wrapf(err, "insert message %s", m.ID)
			}
		}

		var count int64
		if err := tx.Raw("SELECT COUNT(*) FROM messages").Scan(&count).Error; err != nil {
			return err
		}
		if count != int64(len(legacy)) {
			return errors.Errorf("rewrite produced %d messages from %d legacy rows", count, len(legacy))
		}
		return nil
	}
}
