package timeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-gateway/models"
)

// orario fisso per rendere deterministiche le etichette relative
var testNow = time.Date(2026, 8, 28, 15, 0, 0, 0, time.UTC)

func at(day, hour, min int) time.Time {
	return time.Date(2026, 8, day, hour, min, 0, 0, time.UTC)
}

func TestBuildSplitsSectionsOnDayChange(t *testing.T) {
	msgs := []models.Message{
		{ID: "1", Content: "vecchio", Timestamp: at(20, 9, 30)},
		{ID: "2", Content: "ieri uno", Timestamp: at(27, 10, 0)},
		{ID: "3", Content: "ieri due", Timestamp: at(27, 18, 45)},
		{ID: "4", Content: "oggi", Timestamp: at(28, 14, 15)},
	}

	sections := buildAt(msgs, time.UTC, testNow)
	require.Len(t, sections, 3)

	assert.Equal(t, "Thursday, August 20", sections[0].Label)
	require.Len(t, sections[0].Entries, 1)

	assert.Equal(t, "Yesterday", sections[1].Label)
	require.Len(t, sections[1].Entries, 2)
	assert.Equal(t, "ieri uno", sections[1].Entries[0].Content)
	assert.Equal(t, "ieri due", sections[1].Entries[1].Content)

	assert.Equal(t, "Today", sections[2].Label)
	require.Len(t, sections[2].Entries, 1)
}

func TestBuildTimeLabels(t *testing.T) {
	msgs := []models.Message{
		{ID: "1", Timestamp: at(20, 9, 30)},
		{ID: "2", Timestamp: at(28, 14, 15)},
	}

	sections := buildAt(msgs, time.UTC, testNow)
	require.Len(t, sections, 2)

	// oltre 24 ore: data e ora; entro 24 ore: solo ora
	assert.Equal(t, "Aug 20, 9:30 AM", sections[0].Entries[0].TimeLabel)
	assert.Equal(t, "2:15 PM", sections[1].Entries[0].TimeLabel)
}

func TestBuildZeroTimestampStaysInCurrentSection(t *testing.T) {
	msgs := []models.Message{
		{ID: "1", Content: "datato", Timestamp: at(28, 10, 0)},
		{ID: "2", Content: "senza data"},
		{ID: "3", Content: "ancora oggi", Timestamp: at(28, 11, 0)},
	}

	sections := buildAt(msgs, time.UTC, testNow)
	require.Len(t, sections, 1)
	require.Len(t, sections[0].Entries, 3)

	assert.Equal(t, "senza data", sections[0].Entries[1].Content)
	assert.Empty(t, sections[0].Entries[1].TimeLabel)
}

func TestBuildZeroTimestampFirstOpensUnlabeledSection(t *testing.T) {
	msgs := []models.Message{
		{ID: "1", Content: "senza data"},
		{ID: "2", Content: "datato", Timestamp: at(28, 10, 0)},
	}

	sections := buildAt(msgs, time.UTC, testNow)
	require.Len(t, sections, 2)
	assert.Empty(t, sections[0].Label)
	assert.Equal(t, "Today", sections[1].Label)
}

func TestBuildEmptyInput(t *testing.T) {
	assert.Empty(t, buildAt(nil, time.UTC, testNow))
}

func TestReplyPreviewResolvesTarget(t *testing.T) {
	msgs := []models.Message{
		{ID: "1", Content: "domanda", Sender: models.User{ID: "u1", Username: "alice"}, Timestamp: at(28, 10, 0)},
		{ID: "2", Content: "risposta", ReplyToID: "1", Timestamp: at(28, 10, 5)},
	}

	sections := buildAt(msgs, time.UTC, testNow)
	require.Len(t, sections, 1)
	require.Len(t, sections[0].Entries, 2)

	assert.Nil(t, sections[0].Entries[0].ReplyPreview)

	preview := sections[0].Entries[1].ReplyPreview
	require.NotNil(t, preview)
	assert.Equal(t, "alice", preview.Username)
	assert.Equal(t, "domanda", preview.Content)
}

func TestReplyPreviewMissingTargetIsUnknown(t *testing.T) {
	msgs := []models.Message{
		{ID: "2", Content: "risposta", ReplyToID: "fuori-storico", Timestamp: at(28, 10, 5)},
	}

	sections := buildAt(msgs, time.UTC, testNow)
	require.Len(t, sections, 1)

	preview := sections[0].Entries[0].ReplyPreview
	require.NotNil(t, preview)
	assert.Equal(t, "Unknown", preview.Username)
	assert.Empty(t, preview.Content)
}
