package migration

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"Bt1QSocial/cache"
	"Bt1QSocial/logger"
	"Bt1QSocial/model"
)

// MigrateUsers migrates the signed-in user of the auth blob (a logged-out
// session is ignored even if it still holds a user), then every
// known user, then replays the follow graph. Users whose email already
// exists in the store are mapped onto the existing row, not created.
func (e *Engine) MigrateUsers(ctx context.Context, res *Result) int {
	if !e.begin(ctx, res) {
		return 0
	}
	defer e.saveLedger(ctx, res)

	var raws []json.RawMessage

	var auth legacyAuthState
	if _, err := readLegacy(ctx, e.c, cache.LegacyAuthKey, &auth); err != nil {
		res.Errors = append(res.Errors, err.Error())
	} else if auth.signedIn() {
		raws = append(raws, *auth.User)
	}

	var known legacyUsersState
	if _, err := readLegacy(ctx, e.c, cache.LegacyUsersKey, &known); err != nil {
		res.Errors = append(res.Errors, err.Error())
	}
	raws = append(raws, known.Users...)

	created := 0
	for i, raw := range raws {
		var lu legacyUser
		if err := json.Unmarshal(raw, &lu); err != nil {
			res.addError(familyUser, fmt.Sprintf("users#%d", i), err)
			continue
		}
		key := recordKey(lu.ID, "users", i)
		if _, done := e.ledger.lookup(familyUser, key); done {
			continue
		}

		var isNew bool
		guard(res, familyUser, key, func() error {
			id, fresh, err := e.migrateUser(ctx, lu)
			if err != nil {
				return err
			}
			e.ledger.record(familyUser, key, id)
			isNew = fresh
			return nil
		})
		if isNew {
			created++
		}
	}
	res.Migrated.Users += created

	follows := e.replayFollows(ctx, res, known.Following)
	res.Migrated.Follows += follows

	logger.Info("[Migration] users migrated", logger.Int("users", created), logger.Int("follows", follows))
	return created
}

func (e *Engine) migrateUser(ctx context.Context, lu legacyUser) (string, bool, error) {
	email := strings.TrimSpace(lu.Email)
	if email == "" {
		return "", false, fmt.Errorf("missing email")
	}
	if existing := e.st.GetUserByEmail(ctx, email); existing != nil {
		return existing.ID, false, nil
	}

	username := firstNonEmpty(lu.Username, lu.Name, strings.SplitN(email, "@", 2)[0])
	u, err := e.st.CreateUser(ctx, model.UserInput{
		Username:       strings.TrimSpace(username),
		Email:          email,
		DisplayName:    firstNonEmpty(lu.DisplayName, lu.Name),
		Bio:            lu.Bio,
		Website:        lu.Website,
		Avatar:         lu.Avatar,
		PaymentMethods: lu.PaymentMethods,
	})
	if err != nil {
		return "", false, err
	}
	return u.ID, true, nil
}

// replayFollows follows every legacy pair; already-present pairs are no-ops.
func (e *Engine) replayFollows(ctx context.Context, res *Result, graph map[string][]legacyID) int {
	followers := make([]string, 0, len(graph))
	for f := range graph {
		followers = append(followers, f)
	}
	sort.Strings(followers)

	added := 0
	for _, follower := range followers {
		for _, following := range graph[follower] {
			pair := follower + "->" + string(following)
			guard(res, "follow", pair, func() error {
				ok, err := e.st.FollowUser(ctx,
					e.ledger.relink(familyUser, follower),
					e.ledger.relink(familyUser, string(following)))
				if ok {
					added++
				}
				return err
			})
		}
	}
	return added
}
