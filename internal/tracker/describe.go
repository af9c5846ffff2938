package tracker

import (
	"context"
	"fmt"

	"branch-tracker/internal/logging"
)

// Description is the derived entry text for a branch and where it came from.
type Description struct {
	Text   string
	Ticket string
	Title  string
	// FromAssociation is set when the ticket came from the side-file rather
	// than the branch name.
	FromAssociation bool
}

// Describer derives entry descriptions from branch names.
type Describer struct {
	extractor    TicketExtractor
	resolver     TitleResolver
	associations AssociationLookup
}

// NewDescriber builds a describer. resolver and associations may be nil.
func NewDescriber(extractor TicketExtractor, resolver TitleResolver, associations AssociationLookup) *Describer {
	return &Describer{extractor: extractor, resolver: resolver, associations: associations}
}

// Describe returns the task title when one resolves, otherwise
// "[ticket] branch", otherwise the bare branch name.
func (d *Describer) Describe(ctx context.Context, branch string) Description {
	desc := Description{Text: branch}

	ticket, ok := d.extractor.Extract(branch)
	if !ok && d.associations != nil {
		assoc, found, err := d.associations.Lookup(branch)
		if err != nil {
			logging.Warnf("branch association lookup failed: %v", err)
		} else if found {
			ticket, ok = assoc.TaskID, true
			desc.FromAssociation = true
		}
	}
	if !ok {
		return desc
	}
	desc.Ticket = ticket

	if d.resolver != nil {
		if title, found := d.resolver.Resolve(ctx, ticket); found {
			desc.Title = title
			desc.Text = title
			return desc
		}
	}
	desc.Text = fmt.Sprintf("[%s] %s", ticket, branch)
	return desc
}
