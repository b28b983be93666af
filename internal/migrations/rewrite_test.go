package migrations

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strp(s string) *string { return &s }
func boolp(b bool) *bool    { return &b }

func legacy(id, chat string, parent *string, model, createdAt string) LegacyMessage {
	return LegacyMessage{ID: id, ChatID: chat, ParentID: parent, Text: "text " + id, Model: model, CreatedAt: createdAt}
}

func setOf(plan RewritePlan, id string) PlannedMessage {
	for _, m := range plan.Messages {
		if m.ID == id {
			return m
		}
	}
	return PlannedMessage{}
}

func TestGroupLegacyMessagesGroupsSiblings(t *testing.T) {
	msgs := []LegacyMessage{
		legacy("u1", "c1", nil, "user", "2024-01-01 00:00:01"),
		legacy("a1", "c1", strp("u1"), "openai::gpt-4o", "2024-01-01 00:00:02"),
		legacy("a2", "c1", strp("u1"), "anthropic::claude", "2024-01-01 00:00:03"),
		legacy("u2", "c1", strp("a1"), "user", "2024-01-01 00:00:04"),
	}

	plan := GroupLegacyMessages(msgs)
	require.Len(t, plan.Messages, 4)
	require.Len(t, plan.Sets, 3)

	assert.Equal(t, 0, plan.Sets[0].Level)
	assert.Equal(t, "user", plan.Sets[0].Type)
	assert.Nil(t, plan.Sets[0].ParentID)
	assert.Equal(t, 1, plan.Sets[1].Level)
	assert.Equal(t, "ai", plan.Sets[1].Type)
	assert.Equal(t, plan.Sets[0].ID, *plan.Sets[1].ParentID)
	assert.Equal(t, 2, plan.Sets[2].Level)

	a1, a2 := setOf(plan, "a1"), setOf(plan, "a2")
	assert.Equal(t, a1.SetID, a2.SetID)
	// a1 was continued from, so it wins over the lower model id.
	assert.True(t, a1.Selected)
	assert.False(t, a2.Selected)
}

func TestGroupLegacyMessagesSelectionFallbacks(t *testing.T) {
	flagged := legacy("b", "c1", strp("u"), "zeta::model", "2")
	flagged.Selected = boolp(true)
	plan := GroupLegacyMessages([]LegacyMessage{
		legacy("u", "c1", nil, "user", "1"),
		legacy("a", "c1", strp("u"), "alpha::model", "2"),
		flagged,
	})
	assert.True(t, setOf(plan, "b").Selected)
	assert.False(t, setOf(plan, "a").Selected)

	plan = GroupLegacyMessages([]LegacyMessage{
		legacy("u", "c1", nil, "user", "1"),
		legacy("y", "c1", strp("u"), "beta::model", "2"),
		legacy("x", "c1", strp("u"), "beta::model", "2"),
		legacy("z", "c1", strp("u"), "alpha::model", "2"),
	})
	assert.True(t, setOf(plan, "z").Selected)
}

func TestGroupLegacyMessagesOrphansAndCycles(t *testing.T) {
	plan := GroupLegacyMessages([]LegacyMessage{
		legacy("dangling", "c1", strp("missing"), "user", "1"),
		legacy("cross", "c2", strp("dangling"), "user", "1"),
		legacy("p", "c3", strp("q"), "user", "1"),
		legacy("q", "c3", strp("p"), "openai::gpt-4o", "2"),
		legacy("self", "c4", strp("self"), "user", "1"),
	})

	require.Len(t, plan.Messages, 5)
	seen := map[string]int{}
	for _, m := range plan.Messages {
		seen[m.ID]++
	}
	for _, id := range []string{"dangling", "cross", "p", "q", "self"} {
		assert.Equal(t, 1, seen[id], id)
	}

	levels := map[string]int{}
	for _, s := range plan.Sets {
		levels[s.ID] = s.Level
	}
	assert.Equal(t, 0, levels[setOf(plan, "dangling").SetID])
	assert.Equal(t, 0, levels[setOf(plan, "cross").SetID])
	assert.Equal(t, 0, levels[setOf(plan, "p").SetID])
	assert.Equal(t, 1, levels[setOf(plan, "q").SetID])
	assert.Equal(t, 0, levels[setOf(plan, "self").SetID])

	selected := map[string]int{}
	for _, m := range plan.Messages {
		if m.Selected {
			selected[m.SetID]++
		}
	}
	for _, s := range plan.Sets {
		assert.Equal(t, 1, selected[s.ID], s.GroupKey)
	}
}

func TestGroupLegacyMessagesIsDeterministic(t *testing.T) {
	msgs := []LegacyMessage{
		legacy("u1", "c1", nil, "user", "1"),
		legacy("a1", "c1", strp("u1"), "openai::gpt-4o", "2"),
		legacy("a2", "c1", strp("u1"), "anthropic::claude", "2"),
	}
	reversed := []LegacyMessage{msgs[2], msgs[1], msgs[0]}
	assert.Equal(t, GroupLegacyMessages(msgs), GroupLegacyMessages(reversed))
}

func TestLegacyRewriteThroughHistory(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	runner, err := NewRunner(db, History())
	require.NoError(t, err)

	_, err = runner.MigrateTo(ctx, 4)
	require.NoError(t, err)

	require.NoError(t, db.Exec(`INSERT INTO chats (id, title) VALUES ('c1', 'first')`).Error)
	require.NoError(t, db.Exec(`INSERT INTO messages (id, chat_id, parent_id, text, model, selected, attachments, created_at) VALUES
		('u1', 'c1', NULL, 'hi', 'user', NULL, '[{"type":"image","path":"/tmp/img.png","originalName":"img.png"}]', '2024-01-01 10:00:00'),
		('a1', 'c1', 'u1', 'hello', 'openai::gpt-4o', 0, NULL, '2024-01-01 10:00:01'),
		('a2', 'c1', 'u1', 'hey', 'anthropic::claude', 1, NULL, '2024-01-01 10:00:02'),
		('u2', 'c1', 'a2', 'again', 'user', NULL, '[{"type":"image","path":"/tmp/img.png"}]', '2024-01-01 10:00:03'),
		('o1', 'c1', 'gone', 'orphan', 'user', NULL, NULL, '2024-01-01 10:00:04')`).Error)

	_, err = runner.Apply(ctx)
	require.NoError(t, err)

	var archived, current int64
	require.NoError(t, db.Raw("SELECT COUNT(*) FROM messages_archive_legacy").Scan(&archived).Error)
	require.NoError(t, db.Raw("SELECT COUNT(*) FROM messages").Scan(&current).Error)
	assert.Equal(t, int64(5), archived)
	assert.Equal(t, int64(5), current)

	var badSets int64
	require.NoError(t, db.Raw(`SELECT COUNT(*) FROM (
		SELECT message_set_id FROM messages GROUP BY message_set_id
		HAVING SUM(CASE WHEN selected = 1 THEN 1 ELSE 0 END) != 1
	)`).Scan(&badSets).Error)
	assert.Zero(t, badSets)

	var selectedAI string
	require.NoError(t, db.Raw(`SELECT m.id FROM messages m JOIN message_sets s ON s.id = m.message_set_id
		WHERE s.type = 'ai' AND m.selected = 1`).Scan(&selectedAI).Error)
	assert.Equal(t, "a2", selectedAI)

	var orphanLevel int
	require.NoError(t, db.Raw(`SELECT s.level FROM message_sets s JOIN messages m ON m.message_set_id = s.id WHERE m.id = 'o1'`).Scan(&orphanLevel).Error)
	assert.Equal(t, 0, orphanLevel)

	var attachments, links int64
	require.NoError(t, db.Raw("SELECT COUNT(*) FROM attachments").Scan(&attachments).Error)
	require.NoError(t, db.Raw("SELECT COUNT(*) FROM message_attachments").Scan(&links).Error)
	assert.Equal(t, int64(1), attachments)
	assert.Equal(t, int64(2), links)

	var archivedJSON string
	require.NoError(t, db.Raw("SELECT dep_attachments_archive FROM messages WHERE id = 'u1'").Scan(&archivedJSON).Error)
	assert.Contains(t, archivedJSON, "/tmp/img.png")
}

func TestPlanAttachmentExtraction(t *testing.T) {
	rows := map[string]string{
		"m1": `[{"type":"image","path":"/a.png"},{"type":"text","path":""}]`,
		"m2": `[{"type":"image","path":"/a.png"},{"type":"pdf","path":"/b.pdf"},{"type":"image","path":"/a.png"}]`,
		"m3": `not json`,
	}
	n := 0
	atts, links := planAttachmentExtraction(rows, []string{"m1", "m2", "m3"}, func(path string) string {
		n++
		return path
	})
	require.Len(t, atts, 2)
	assert.Equal(t, 2, n)
	assert.Equal(t, []attachmentLink{
		{MessageID: "m1", AttachmentID: "/a.png"},
		{MessageID: "m2", AttachmentID: "/a.png"},
		{MessageID: "m2", AttachmentID: "/b.pdf"},
	}, links)
}
