package migration

import (
	"context"
	"encoding/json"
	"fmt"

	"Bt1QSocial/cache"
	"Bt1QSocial/logger"
	"Bt1QSocial/model"
)

// MigrateCollaboration creates the legacy projects, status "active"
// becoming "open", then the applications of each project re-pointed at the
// new project id. Applications count into Migrated.Applications.
func (e *Engine) MigrateCollaboration(ctx context.Context, res *Result) int {
	if !e.begin(ctx, res) {
		return 0
	}
	defer e.saveLedger(ctx, res)

	var state legacyCollaborationState
	if _, err := readLegacy(ctx, e.c, cache.LegacyCollaborationKey, &state); err != nil {
		res.Errors = append(res.Errors, err.Error())
		return 0
	}

	// applications grouped by legacy project id
	apps := make(map[string][]legacyApplication)
	for i, raw := range state.Applications {
		var la legacyApplication
		if err := json.Unmarshal(raw, &la); err != nil {
			res.addError(familyApplication, fmt.Sprintf("applications#%d", i), err)
			continue
		}
		apps[string(la.ProjectID)] = append(apps[string(la.ProjectID)], la)
	}

	projects, applications := 0, 0
	for i, raw := range state.Projects {
		var lp legacyProject
		if err := json.Unmarshal(raw, &lp); err != nil {
			res.addError(familyProject, fmt.Sprintf("projects#%d", i), err)
			continue
		}
		key := recordKey(lp.ID, "projects", i)

		projectID, done := e.ledger.lookup(familyProject, key)
		if !done {
			ok := guard(res, familyProject, key, func() error {
				p, err := e.st.CreateProject(ctx, model.ProjectInput{
					Title:        lp.Title,
					Description:  lp.Description,
					UserID:       e.ledger.relink(familyUser, firstNonEmpty(string(lp.CreatedBy), string(lp.UserID))),
					Genre:        lp.Genre,
					SkillsNeeded: lp.SkillsNeeded,
					Status:       normalizeProjectStatus(lp.Status),
					Deadline:     lp.Deadline.ptr(),
				})
				if err != nil {
					return err
				}
				projectID = p.ID
				e.ledger.record(familyProject, key, p.ID)
				return nil
			})
			if !ok {
				if n := len(apps[string(lp.ID)]); n > 0 {
					res.addError(familyApplication, key, fmt.Errorf("%d applications skipped, project not migrated", n))
				}
				continue
			}
			projects++
		}

		if lp.ID == "" {
			continue
		}
		for j, la := range apps[string(lp.ID)] {
			appKey := recordKey(la.ID, key+"/applications", j)
			if _, done := e.ledger.lookup(familyApplication, appKey); done {
				continue
			}
			if guard(res, familyApplication, appKey, func() error {
				a, err := e.st.CreateApplication(ctx, model.ApplicationInput{
					ProjectID: projectID,
					UserID:    e.ledger.relink(familyUser, string(la.UserID)),
					Message:   la.Message,
					Status:    normalizeApplicationStatus(la.Status),
				})
				if err != nil {
					return err
				}
				e.ledger.record(familyApplication, appKey, a.ID)
				return nil
			}) {
				applications++
			}
		}
	}

	res.Migrated.Projects += projects
	res.Migrated.Applications += applications
	logger.Info("[Migration] collaboration migrated",
		logger.Int("projects", projects),
		logger.Int("applications", applications))
	return projects
}
