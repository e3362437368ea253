// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package reconcile turns an edited page document into the set of row
// changes that make the stored document equal to it, and validates the
// document against the active theme's schema before it is stored.
package reconcile

import (
	"github.com/google/uuid"

	"pagecraft/internal/models"
)

// Plan lists the row changes of one save. Sections and widgets carry their
// final ids, parents and contiguous positions.
type Plan struct {
	PageID uuid.UUID

	InsertSections []models.Section
	UpdateSections []models.Section
	DeleteSections []uuid.UUID

	InsertWidgets []models.Widget
	UpdateWidgets []models.Widget
	DeleteWidgets []uuid.UUID
}

// Empty reports whether the plan changes nothing.
func (p Plan) Empty() bool {
	return len(p.InsertSections)+len(p.UpdateSections)+len(p.DeleteSections)+
		len(p.InsertWidgets)+len(p.UpdateWidgets)+len(p.DeleteWidgets) == 0
}

// Diff compares the stored page with the incoming document. Nodes whose id
// is known are updated, nodes with a nil or unknown id are inserted, and
// stored nodes missing from incoming are deleted; deleting a section also
// deletes every widget it held that was not moved elsewhere. Positions are
// reassigned from list order so both levels stay contiguous from zero.
// Neither argument is modified; existing may be nil for a new page.
func Diff(existing, incoming *models.Page) Plan {
	plan := Plan{PageID: incoming.ID}

	storedSections := map[uuid.UUID]bool{}
	storedWidgets := map[uuid.UUID]bool{}
	var sectionOrder, widgetOrder []uuid.UUID
	if existing != nil {
		plan.PageID = existing.ID
		for _, s := range existing.Sections {
			storedSections[s.ID] = true
			sectionOrder = append(sectionOrder, s.ID)
			for _, w := range s.Widgets {
				storedWidgets[w.ID] = true
				widgetOrder = append(widgetOrder, w.ID)
			}
		}
	}

	seen := map[uuid.UUID]bool{}
	for i, in := range incoming.Sections {
		sec := in
		sec.PageID = plan.PageID
		sec.Position = i
		sec.Widgets = nil

		if sec.ID == uuid.Nil || seen[sec.ID] {
			sec.ID = uuid.New()
		}
		seen[sec.ID] = true
		if storedSections[sec.ID] {
			plan.UpdateSections = append(plan.UpdateSections, sec)
		} else {
			plan.InsertSections = append(plan.InsertSections, sec)
		}

		for j, inw := range in.Widgets {
			w := inw
			w.SectionID = sec.ID
			w.Position = j
			if w.ID == uuid.Nil || seen[w.ID] {
				w.ID = uuid.New()
			}
			seen[w.ID] = true
			if storedWidgets[w.ID] {
				plan.UpdateWidgets = append(plan.UpdateWidgets, w)
			} else {
				plan.InsertWidgets = append(plan.InsertWidgets, w)
			}
		}
	}

	for _, id := range widgetOrder {
		if !seen[id] {
			plan.DeleteWidgets = append(plan.DeleteWidgets, id)
		}
	}
	for _, id := range sectionOrder {
		if !seen[id] {
			plan.DeleteSections = append(plan.DeleteSections, id)
		}
	}
	return plan
}
