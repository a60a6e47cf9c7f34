package projections

import (
	"context"
	"fmt"

	clientStore "activitylog/internal/adapters/storage/client"
	"activitylog/internal/application/listutil"
	"activitylog/internal/domain/account"
	domainClient "activitylog/internal/domain/client"
	"activitylog/internal/domain/policy"
)

// ClientListSortColumns are the sort keys accepted by the client list.
var ClientListSortColumns = []string{"name", "email", "program", "status", "created"}

// ClientListFilterKeys are the filters accepted by the client list. coach=all lifts a
// coach's default restriction to their own caseload.
var ClientListFilterKeys = []string{"program", "status", "coach"}

// GetClientListQuery carries query parameters.
type GetClientListQuery struct {
	Actor  policy.Actor
	Params listutil.ListParams
}

// ClientRow is one row of the client list.
type ClientRow struct {
	domainClient.Client
	CoachName string
}

// GetClientListResult carries the query result.
type GetClientListResult struct {
	Clients []ClientRow
	Page    listutil.PageInfo
}

// GetClientListDeps holds dependencies for GetClientList.
type GetClientListDeps struct {
	ClientStore  ClientStore
	AccountStore AccountStore
}

// QueryGetClientList pages through client profiles for staff.
// PRE: Actor is a coach or admin
// POST: coaches see their own caseload unless coach=all; status defaults to active
func QueryGetClientList(ctx context.Context, query GetClientListQuery, deps GetClientListDeps) (GetClientListResult, error) {
	if !query.Actor.Authenticated() {
		return GetClientListResult{}, policy.ErrUnauthenticated
	}
	if !query.Actor.IsStaff() {
		return GetClientListResult{}, fmt.Errorf("%w: client list is staff only", policy.ErrForbidden)
	}

	p := query.Params
	filter := clientStore.ListFilter{
		Program: p.Get("program"),
		Status:  p.Get("status"),
		CoachID: p.Get("coach"),
		Search:  p.Search,
		Sort:    p.Sort,
		Dir:     p.Dir,
	}
	if filter.Status == "" {
		filter.Status = domainClient.StatusActive
	} else if filter.Status == "all" {
		filter.Status = ""
	}
	switch {
	case filter.CoachID == "all":
		filter.CoachID = ""
	case filter.CoachID == "" && query.Actor.Role == account.RoleCoach:
		filter.CoachID = query.Actor.ID
	}

	total, err := deps.ClientStore.Count(ctx, filter)
	if err != nil {
		return GetClientListResult{}, fmt.Errorf("count clients: %w", err)
	}
	page := listutil.NewPageInfo(p.Page, p.PerPage, total)
	filter.Limit = page.PerPage
	filter.Offset = page.Offset()

	clients, err := deps.ClientStore.List(ctx, filter)
	if err != nil {
		return GetClientListResult{}, fmt.Errorf("list clients: %w", err)
	}

	var coachIDs []string
	seen := make(map[string]bool)
	for _, c := range clients {
		if c.CoachID != "" && !seen[c.CoachID] {
			seen[c.CoachID] = true
			coachIDs = append(coachIDs, c.CoachID)
		}
	}
	names, err := displayNames(ctx, deps.AccountStore, coachIDs)
	if err != nil {
		return GetClientListResult{}, fmt.Errorf("resolve coaches: %w", err)
	}

	result := GetClientListResult{Page: page, Clients: make([]ClientRow, 0, len(clients))}
	for _, c := range clients {
		result.Clients = append(result.Clients, ClientRow{Client: c, CoachName: names[c.CoachID]})
	}
	return result, nil
}
