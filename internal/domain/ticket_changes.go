package domain

import (
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Ticket fields tracked by the change diff, in description order.
const (
	FieldTitle       = "title"
	FieldDescription = "description"
	FieldStatus      = "status"
	FieldPriority    = "priority"
	FieldCategoryID  = "category_id"
	FieldAssignedTo  = "assigned_to"
	FieldAttachments = "attachments"
)

var trackedFields = []string{
	FieldTitle,
	FieldDescription,
	FieldStatus,
	FieldPriority,
	FieldCategoryID,
	FieldAssignedTo,
	FieldAttachments,
}

// ChangedFields lists the user-editable fields whose values differ between before and after.
// Derived timestamps are never reported.
func ChangedFields(before, after *Ticket) []string {
	changed := make([]string, 0, len(trackedFields))
	for _, field := range trackedFields {
		if fieldChanged(field, before, after) {
			changed = append(changed, field)
		}
	}
	return changed
}

func fieldChanged(field string, before, after *Ticket) bool {
	switch field {
	case FieldTitle:
		return before.Title != after.Title
	case FieldDescription:
		return before.Description != after.Description
	case FieldStatus:
		return before.Status != after.Status
	case FieldPriority:
		return before.Priority != after.Priority
	case FieldCategoryID:
		return before.CategoryID != after.CategoryID
	case FieldAssignedTo:
		return stringOrNil(before.AssignedTo) != stringOrNil(after.AssignedTo)
	case FieldAttachments:
		return !slices.EqualFunc(before.Attachments, after.Attachments, func(a, b Attachment) bool {
			return a.Path == b.Path && a.Name == b.Name && a.Size == b.Size && a.MimeType == b.MimeType
		})
	}
	return false
}

// ChangeDescription renders the human summary for an update touching fields.
func ChangeDescription(fields []string, after *Ticket) string {
	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		switch field {
		case FieldStatus:
			parts = append(parts, fmt.Sprintf("Status changed to %s", after.Status))
		case FieldPriority:
			parts = append(parts, fmt.Sprintf("Priority changed to %s", after.Priority))
		case FieldAssignedTo:
			if after.AssignedTo != nil {
				parts = append(parts, fmt.Sprintf("Assigned to user ID %s", *after.AssignedTo))
			} else {
				parts = append(parts, "Unassigned")
			}
		case FieldCategoryID:
			parts = append(parts, "Category changed")
		default:
			parts = append(parts, cases.Title(language.English).String(strings.ReplaceAll(field, "_", " "))+" updated")
		}
	}
	return strings.Join(parts, ", ")
}

// AssignmentDescription renders the summary for an explicit assign call.
func AssignmentDescription(assignee *string) string {
	if assignee == nil {
		return "Ticket unassigned"
	}
	return fmt.Sprintf("Ticket assigned to user ID %s", *assignee)
}
