package migration

import (
	"context"
	"encoding/json"
	"fmt"

	"Bt1QSocial/cache"
	"Bt1QSocial/logger"
	"Bt1QSocial/model"
)

// MigrateConversations creates (or reuses, by participant set) one
// conversation per legacy conversation and then replays its messages
// against the id the store returned. Messages count into Migrated.Messages.
func (e *Engine) MigrateConversations(ctx context.Context, res *Result) int {
	if !e.begin(ctx, res) {
		return 0
	}
	defer e.saveLedger(ctx, res)

	var state legacyMessagesState
	if _, err := readLegacy(ctx, e.c, cache.LegacyMessagesKey, &state); err != nil {
		res.Errors = append(res.Errors, err.Error())
		return 0
	}

	migrated, messages := 0, 0
	for i, raw := range state.Conversations {
		var lc legacyConversation
		if err := json.Unmarshal(raw, &lc); err != nil {
			res.addError(familyConversation, fmt.Sprintf("conversations#%d", i), err)
			continue
		}
		key := recordKey(lc.ID, "conversations", i)

		convID, done := e.ledger.lookup(familyConversation, key)
		if !done {
			ok := guard(res, familyConversation, key, func() error {
				participants := make([]string, 0, len(lc.Participants))
				for _, p := range lc.Participants {
					participants = append(participants, e.ledger.relink(familyUser, string(p)))
				}
				conv, err := e.st.CreateConversation(ctx, participants)
				if err != nil {
					return err
				}
				convID = conv.ID
				e.ledger.record(familyConversation, key, conv.ID)
				return nil
			})
			if !ok {
				if n := len(state.Messages[string(lc.ID)]); n > 0 {
					res.addError(familyMessage, key, fmt.Errorf("%d messages skipped, conversation not migrated", n))
				}
				continue
			}
			migrated++
		}

		messages += e.migrateMessages(ctx, res, key, convID, state.Messages[string(lc.ID)])
	}

	res.Migrated.Conversations += migrated
	res.Migrated.Messages += messages
	logger.Info("[Migration] conversations migrated",
		logger.Int("conversations", migrated),
		logger.Int("messages", messages))
	return migrated
}

func (e *Engine) migrateMessages(ctx context.Context, res *Result, convKey, convID string, raws []json.RawMessage) int {
	created := 0
	for i, raw := range raws {
		var lm legacyMessage
		if err := json.Unmarshal(raw, &lm); err != nil {
			res.addError(familyMessage, fmt.Sprintf("%s#%d", convKey, i), err)
			continue
		}
		key := recordKey(lm.ID, convKey, i)
		if _, done := e.ledger.lookup(familyMessage, key); done {
			continue
		}

		if guard(res, familyMessage, key, func() error {
			m, err := e.st.CreateMessage(ctx, model.MessageInput{
				ConversationID: convID,
				SenderID:       e.ledger.relink(familyUser, string(lm.SenderID)),
				Type:           lm.Type,
				Text:           firstNonEmpty(lm.Text, lm.Content),
				AudioURL:       lm.AudioURL,
				ImageURL:       lm.ImageURL,
				Timestamp:      lm.Timestamp.Time,
			})
			if err != nil {
				return err
			}
			e.ledger.record(familyMessage, key, m.ID)
			return nil
		}) {
			created++
		}
	}
	return created
}
