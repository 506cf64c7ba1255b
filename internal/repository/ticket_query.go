package repository

import (
	"fmt"
	"strings"
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// ArchivedVisibility controls whether archived tickets are listed.
type ArchivedVisibility string

const (
	ArchivedExclude ArchivedVisibility = "default"
	ArchivedInclude ArchivedVisibility = "all"
	ArchivedOnly    ArchivedVisibility = "only"
)

// ParseArchivedVisibility maps the query parameter onto a visibility; unknown values exclude archived.
func ParseArchivedVisibility(raw string) ArchivedVisibility {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "all":
		return ArchivedInclude
	case "only", "true", "1":
		return ArchivedOnly
	default:
		return ArchivedExclude
	}
}

// TicketSort is an allow-listed ordering.
type TicketSort string

const (
	SortNewest   TicketSort = "newest"
	SortOldest   TicketSort = "oldest"
	SortPriority TicketSort = "priority"
	SortStatus   TicketSort = "status"
)

// ParseTicketSort accepts the allow-listed names and silently falls back to newest.
func ParseTicketSort(raw string) TicketSort {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "oldest", "created_at_asc":
		return SortOldest
	case "priority":
		return SortPriority
	case "status":
		return SortStatus
	default:
		return SortNewest
	}
}

// Pagination defaults.
const (
	DefaultPerPage = 15
	MaxPerPage     = 100
)

// TicketFilter narrows a ticket listing.
type TicketFilter struct {
	Search     string
	Status     *domain.TicketStatus
	Priority   *domain.TicketPriority
	CategoryID *string
	AssignedTo *string
	Archived   ArchivedVisibility
	// VisibleTo restricts rows to tickets the user created or is assigned to.
	VisibleTo *string
}

// TicketInclude selects the relations resolved on read.
type TicketInclude struct {
	Category bool
	Creator  bool
	Assignee bool
}

// IncludeAll resolves every ticket relation.
var IncludeAll = TicketInclude{Category: true, Creator: true, Assignee: true}

// TicketListQuery is a full listing request.
type TicketListQuery struct {
	Filter  TicketFilter
	Sort    TicketSort
	Page    int
	PerPage int
	Include TicketInclude
}

// Normalize clamps paging and defaults the sort.
func (q TicketListQuery) Normalize() TicketListQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PerPage < 1 {
		q.PerPage = DefaultPerPage
	}
	if q.PerPage > MaxPerPage {
		q.PerPage = MaxPerPage
	}
	q.Sort = ParseTicketSort(string(q.Sort))
	if q.Filter.Archived == "" {
		q.Filter.Archived = ArchivedExclude
	}
	return q
}

// Offset is the number of rows skipped for the page.
func (q TicketListQuery) Offset() int {
	return (q.Page - 1) * q.PerPage
}

// TotalPages computes ceil(total/perPage).
func TotalPages(total, perPage int) int {
	if perPage <= 0 || total <= 0 {
		return 0
	}
	return (total + perPage - 1) / perPage
}

// StatsQuery scopes the aggregate counts.
type StatsQuery struct {
	UserID *string
	Now    time.Time
}

// WeekBounds returns the start of this week's and last week's rolling windows.
func (q StatsQuery) WeekBounds() (thisWeek, lastWeek time.Time) {
	return q.Now.Add(-7 * 24 * time.Hour), q.Now.Add(-14 * 24 * time.Hour)
}

const ticketColumns = `t.id, t.title, t.description, t.priority, t.status, t.category_id, t.user_id,
       t.assigned_to, t.attachments, t.resolved_at, t.closed_at, t.archived, t.created_at, t.updated_at`

func ticketSelect(include TicketInclude) (columns, joins string) {
	cols := []string{ticketColumns}
	var js []string
	if include.Category {
		cols = append(cols, "c.id, c.name, c.slug, c.color")
		js = append(js, "LEFT JOIN categories c ON c.id = t.category_id")
	}
	if include.Creator {
		cols = append(cols, "cu.id, cu.name, cu.email, cu.role")
		js = append(js, "LEFT JOIN users cu ON cu.id = t.user_id")
	}
	if include.Assignee {
		cols = append(cols, "au.id, au.name, au.email, au.role")
		js = append(js, "LEFT JOIN users au ON au.id = t.assigned_to")
	}
	return strings.Join(cols, ", "), strings.Join(js, " ")
}

func ticketOrderBy(sort TicketSort) string {
	switch sort {
	case SortOldest:
		return "t.created_at ASC, t.id ASC"
	case SortPriority:
		return "CASE t.priority WHEN 'urgent' THEN 0 WHEN 'high' THEN 1 WHEN 'medium' THEN 2 ELSE 3 END, t.created_at DESC, t.id DESC"
	case SortStatus:
		return "CASE t.status WHEN 'open' THEN 0 WHEN 'in_progress' THEN 1 WHEN 'resolved' THEN 2 ELSE 3 END, t.created_at DESC, t.id DESC"
	default:
		return "t.created_at DESC, t.id DESC"
	}
}

// ticketWhere builds the filter clauses. Search always needs the creator join.
func ticketWhere(filter TicketFilter) (string, []any) {
	clauses := []string{"1=1"}
	args := []any{}

	switch filter.Archived {
	case ArchivedInclude:
	case ArchivedOnly:
		clauses = append(clauses, "t.archived = TRUE")
	default:
		clauses = append(clauses, "t.archived = FALSE")
	}
	if filter.VisibleTo != nil {
		args = append(args, *filter.VisibleTo)
		clauses = append(clauses, fmt.Sprintf("(t.user_id=$%d OR t.assigned_to=$%d)", len(args), len(args)))
	}
	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		clauses = append(clauses, fmt.Sprintf("t.status=$%d", len(args)))
	}
	if filter.Priority != nil {
		args = append(args, string(*filter.Priority))
		clauses = append(clauses, fmt.Sprintf("t.priority=$%d", len(args)))
	}
	if filter.CategoryID != nil {
		args = append(args, *filter.CategoryID)
		clauses = append(clauses, fmt.Sprintf("t.category_id=$%d", len(args)))
	}
	if filter.AssignedTo != nil {
		args = append(args, *filter.AssignedTo)
		clauses = append(clauses, fmt.Sprintf("t.assigned_to=$%d", len(args)))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, "%"+escapeLike(strings.ToLower(search))+"%")
		p := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf(
			"(LOWER(t.title) LIKE %s OR LOWER(t.description) LIKE %s OR LOWER(su.name) LIKE %s)", p, p, p))
	}
	return strings.Join(clauses, " AND "), args
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// buildTicketListQuery returns the count and page statements sharing args.
func buildTicketListQuery(q TicketListQuery) (countSQL, listSQL string, args []any) {
	where, args := ticketWhere(q.Filter)
	searchJoin := "LEFT JOIN users su ON su.id = t.user_id"

	countSQL = fmt.Sprintf("SELECT COUNT(*) FROM tickets t %s WHERE %s", searchJoin, where)

	columns, joins := ticketSelect(q.Include)
	args = append(args, q.PerPage, q.Offset())
	listSQL = fmt.Sprintf("SELECT %s FROM tickets t %s %s WHERE %s ORDER BY %s LIMIT $%d OFFSET $%d",
		columns, searchJoin, joins, where, ticketOrderBy(q.Sort), len(args)-1, len(args))
	return countSQL, listSQL, args
}

func buildTicketStatsQuery(q StatsQuery) (string, []any) {
	thisWeek, lastWeek := q.WeekBounds()
	args := []any{thisWeek, lastWeek}
	query := `
        SELECT COUNT(*),
               COUNT(*) FILTER (WHERE status = 'open'),
               COUNT(*) FILTER (WHERE status = 'in_progress'),
               COUNT(*) FILTER (WHERE status = 'resolved'),
               COUNT(*) FILTER (WHERE status = 'closed'),
               COUNT(*) FILTER (WHERE priority IN ('high', 'urgent')),
               COUNT(*) FILTER (WHERE created_at >= $1),
               COUNT(*) FILTER (WHERE created_at >= $2 AND created_at < $1)
        FROM tickets
        WHERE archived = FALSE`
	if q.UserID != nil {
		args = append(args, *q.UserID)
		query += " AND (user_id = $3 OR assigned_to = $3)"
	}
	return query, args
}
