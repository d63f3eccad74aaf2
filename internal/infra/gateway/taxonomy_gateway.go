package gateway

import (
	"context"
	"net/http"

	"github.com/pkg/errors"

	"github.com/totegamma/taxonomy-sync"
	"github.com/totegamma/taxonomy-sync/client"
	"github.com/totegamma/taxonomy-sync/internal/domain"
)

// TaxonomyGateway adapts the taxonomy REST client to domain types.
type TaxonomyGateway struct {
	client *client.Client
}

func NewTaxonomyGateway(cl *client.Client) *TaxonomyGateway {
	return &TaxonomyGateway{client: cl}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// translate turns a 404 into domain.NotFoundError and wraps everything else.
func translate(err error, resource, msg string) error {
	var apiErr *taxonomy.APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
		return domain.NotFoundError{Resource: resource}
	}
	return errors.Wrap(err, msg)
}

func toTreeNode(n taxonomy.Node) domain.TreeNode {
	return domain.TreeNode{
		Kind:       domain.NodeKindRoot,
		ID:         n.ID,
		Name:       n.Name,
		NodeType:   n.NodeType,
		ContentURI: deref(n.ContentURI),
		Path:       n.Path,
		Visible:    n.Metadata.Visible,
		GrepCodes:  n.Metadata.GrepCodes,
		Features:   domain.DecodeFeatures(n.Metadata.CustomFields),
	}
}

func toChild(n taxonomy.Node, parentID, connectionID string, rank int, primary bool) domain.TreeNode {
	node := toTreeNode(n)
	node.Kind = domain.NodeKindChild
	node.Connection = &domain.ChildConnection{
		ParentID:     parentID,
		ConnectionID: connectionID,
		Rank:         rank,
		Primary:      primary,
		RelevanceID:  deref(n.RelevanceID),
	}
	return node
}

func (g *TaxonomyGateway) GetNode(ctx context.Context, version domain.Version, language, id string) (domain.TreeNode, error) {
	node, err := g.client.GetNode(ctx, version.String(), id, language)
	if err != nil {
		return domain.TreeNode{}, translate(err, "node "+id, "TaxonomyGateway.GetNode")
	}
	return toTreeNode(node), nil
}

func (g *TaxonomyGateway) ListNodes(ctx context.Context, version domain.Version, query taxonomy.NodeQuery) ([]domain.TreeNode, error) {
	nodes, err := g.client.GetNodes(ctx, version.String(), query)
	if err != nil {
		return nil, errors.Wrap(err, "TaxonomyGateway.ListNodes")
	}
	result := make([]domain.TreeNode, 0, len(nodes))
	for _, n := range nodes {
		result = append(result, toTreeNode(n))
	}
	return result, nil
}

func (g *TaxonomyGateway) CreateNode(ctx context.Context, version domain.Version, node taxonomy.NodePostPut) (string, error) {
	id, err := g.client.PostNode(ctx, version.String(), node)
	if err != nil {
		return "", errors.Wrap(err, "TaxonomyGateway.CreateNode")
	}
	return id, nil
}

func (g *TaxonomyGateway) UpdateMetadata(ctx context.Context, version domain.Version, id string, update domain.MetadataUpdate) error {
	patch := taxonomy.MetadataPatch{
		GrepCodes: update.GrepCodes,
		Visible:   update.Visible,
	}
	if update.Features != nil {
		fields := update.Features.Encode()
		patch.CustomFields = &fields
	}
	_, err := g.client.UpdateNodeMetadata(ctx, version.String(), id, patch)
	if err != nil {
		return translate(err, "node "+id, "TaxonomyGateway.UpdateMetadata")
	}
	return nil
}

func (g *TaxonomyGateway) DeleteNode(ctx context.Context, version domain.Version, id string) error {
	err := g.client.DeleteNode(ctx, version.String(), id)
	if err != nil {
		return translate(err, "node "+id, "TaxonomyGateway.DeleteNode")
	}
	return nil
}

func (g *TaxonomyGateway) Children(ctx context.Context, version domain.Version, language, parentID string) ([]domain.TreeNode, error) {
	children, err := g.client.GetChildNodes(ctx, version.String(), parentID, false, language)
	if err != nil {
		return nil, translate(err, "node "+parentID, "TaxonomyGateway.Children")
	}
	result := make([]domain.TreeNode, 0, len(children))
	for _, c := range children {
		result = append(result, toChild(c.Node, c.ParentID, c.ConnectionID, c.Rank, c.IsPrimary))
	}
	return result, nil
}

func (g *TaxonomyGateway) Resources(ctx context.Context, version domain.Version, language, parentID string) ([]domain.TreeNode, error) {
	resources, err := g.client.GetNodeResources(ctx, version.String(), parentID, language)
	if err != nil {
		return nil, translate(err, "node "+parentID, "TaxonomyGateway.Resources")
	}
	result := make([]domain.TreeNode, 0, len(resources))
	for _, r := range resources {
		result = append(result, toChild(r.Node, r.ParentID, r.ConnectionID, r.Rank, r.IsPrimary))
	}
	return result, nil
}

func (g *TaxonomyGateway) Connect(ctx context.Context, version domain.Version, parentID, childID string, primary bool, relevanceID string) (string, error) {
	var (
		id  string
		err error
	)
	if taxonomy.IsResourceID(childID) {
		id, err = g.client.PostNodeResource(ctx, version.String(), taxonomy.NodeResourcePost{
			NodeID:      parentID,
			ResourceID:  childID,
			Primary:     &primary,
			RelevanceID: optional(relevanceID),
		})
	} else {
		id, err = g.client.PostNodeConnection(ctx, version.String(), taxonomy.NodeConnectionPost{
			ParentID:    parentID,
			ChildID:     childID,
			Primary:     &primary,
			RelevanceID: optional(relevanceID),
		})
	}
	if err != nil {
		return "", errors.Wrap(err, "TaxonomyGateway.Connect")
	}
	return id, nil
}

func (g *TaxonomyGateway) UpdateConnection(ctx context.Context, version domain.Version, connection domain.ChildConnection) error {
	rank := connection.Rank
	primary := connection.Primary
	body := taxonomy.ConnectionPut{
		Primary:     &primary,
		Rank:        &rank,
		RelevanceID: optional(connection.RelevanceID),
	}

	var err error
	if taxonomy.IsNodeResourceConnection(connection.ConnectionID) {
		err = g.client.PutNodeResource(ctx, version.String(), connection.ConnectionID, body)
	} else {
		err = g.client.PutNodeConnection(ctx, version.String(), connection.ConnectionID, body)
	}
	if err != nil {
		return translate(err, "connection "+connection.ConnectionID, "TaxonomyGateway.UpdateConnection")
	}
	return nil
}

func (g *TaxonomyGateway) Disconnect(ctx context.Context, version domain.Version, connectionID string) error {
	var err error
	if taxonomy.IsNodeResourceConnection(connectionID) {
		err = g.client.DeleteNodeResource(ctx, version.String(), connectionID)
	} else {
		err = g.client.DeleteNodeConnection(ctx, version.String(), connectionID)
	}
	if err != nil {
		return translate(err, "connection "+connectionID, "TaxonomyGateway.Disconnect")
	}
	return nil
}

func (g *TaxonomyGateway) parentConnections(ctx context.Context, version domain.Version, id string) ([]domain.Association, error) {
	connections, err := g.client.GetNodeConnections(ctx, version.String(), id)
	if err != nil {
		return nil, err
	}
	parents := make([]domain.Association, 0, len(connections))
	for _, c := range connections {
		if c.Type != taxonomy.ConnectionTypeParent {
			continue
		}
		parents = append(parents, domain.Association{
			ID:           c.TargetID,
			ConnectionID: c.ConnectionID,
			RelevanceID:  deref(c.RelevanceID),
			Primary:      c.IsPrimary,
			Rank:         c.Rank,
		})
	}
	return parents, nil
}

func (g *TaxonomyGateway) Associations(ctx context.Context, version domain.Version, kind domain.AssociationKind, primaryID string) ([]domain.Association, error) {
	var result []domain.Association
	switch kind {
	case domain.KindResourceTypes:
		types, err := g.client.GetResourceResourceTypes(ctx, version.String(), primaryID, "")
		if err != nil {
			return nil, translate(err, "resource "+primaryID, "TaxonomyGateway.Associations")
		}
		result = make([]domain.Association, 0, len(types))
		for _, rt := range types {
			result = append(result, domain.Association{ID: rt.ID, ConnectionID: rt.ConnectionID})
		}
	case domain.KindFilters:
		filters, err := g.client.GetResourceFilters(ctx, version.String(), primaryID, "")
		if err != nil {
			return nil, translate(err, "resource "+primaryID, "TaxonomyGateway.Associations")
		}
		result = make([]domain.Association, 0, len(filters))
		for _, f := range filters {
			result = append(result, domain.Association{ID: f.ID, ConnectionID: f.ConnectionID, RelevanceID: f.RelevanceID})
		}
	case domain.KindTopicResources, domain.KindNodeParents:
		parents, err := g.parentConnections(ctx, version, primaryID)
		if err != nil {
			return nil, translate(err, "node "+primaryID, "TaxonomyGateway.Associations")
		}
		result = parents
	default:
		return nil, errors.Errorf("unknown association kind %q", kind)
	}
	return result, nil
}

func (g *TaxonomyGateway) CreateAssociation(ctx context.Context, version domain.Version, kind domain.AssociationKind, primaryID string, a domain.Association) (string, error) {
	var (
		id  string
		err error
	)
	primary := a.Primary
	switch kind {
	case domain.KindResourceTypes:
		id, err = g.client.PostResourceResourceType(ctx, version.String(), taxonomy.ResourceResourceTypePost{
			ResourceID:     primaryID,
			ResourceTypeID: a.ID,
		})
	case domain.KindFilters:
		id, err = g.client.PostResourceFilter(ctx, version.String(), taxonomy.ResourceFilterPost{
			ResourceID:  primaryID,
			FilterID:    a.ID,
			RelevanceID: a.RelevanceID,
		})
	case domain.KindTopicResources:
		body := taxonomy.NodeResourcePost{
			NodeID:      a.ID,
			ResourceID:  primaryID,
			Primary:     &primary,
			RelevanceID: optional(a.RelevanceID),
		}
		if a.Rank != 0 {
			rank := a.Rank
			body.Rank = &rank
		}
		id, err = g.client.PostNodeResource(ctx, version.String(), body)
	case domain.KindNodeParents:
		id, err = g.client.PostNodeConnection(ctx, version.String(), taxonomy.NodeConnectionPost{
			ParentID:    a.ID,
			ChildID:     primaryID,
			Primary:     &primary,
			RelevanceID: optional(a.RelevanceID),
		})
	default:
		return "", errors.Errorf("unknown association kind %q", kind)
	}
	if err != nil {
		return "", errors.Wrapf(err, "TaxonomyGateway.CreateAssociation %s", kind)
	}
	return id, nil
}

func (g *TaxonomyGateway) UpdateAssociation(ctx context.Context, version domain.Version, kind domain.AssociationKind, primaryID string, a domain.Association) error {
	var err error
	primary := a.Primary
	switch kind {
	case domain.KindFilters:
		err = g.client.PutResourceFilter(ctx, version.String(), a.ConnectionID, taxonomy.ResourceFilterPut{
			RelevanceID: a.RelevanceID,
		})
	case domain.KindTopicResources:
		body := taxonomy.ConnectionPut{
			Primary:     &primary,
			RelevanceID: optional(a.RelevanceID),
		}
		if a.Rank != 0 {
			rank := a.Rank
			body.Rank = &rank
		}
		err = g.client.PutNodeResource(ctx, version.String(), a.ConnectionID, body)
	case domain.KindNodeParents:
		err = g.client.PutNodeConnection(ctx, version.String(), a.ConnectionID, taxonomy.ConnectionPut{
			Primary:     &primary,
			RelevanceID: optional(a.RelevanceID),
		})
	default:
		return errors.Errorf("association kind %q cannot be updated", kind)
	}
	if err != nil {
		return errors.Wrapf(err, "TaxonomyGateway.UpdateAssociation %s", kind)
	}
	return nil
}

func (g *TaxonomyGateway) DeleteAssociation(ctx context.Context, version domain.Version, kind domain.AssociationKind, a domain.Association) error {
	var err error
	switch kind {
	case domain.KindResourceTypes:
		err = g.client.DeleteResourceResourceType(ctx, version.String(), a.ConnectionID)
	case domain.KindFilters:
		err = g.client.DeleteResourceFilter(ctx, version.String(), a.ConnectionID)
	case domain.KindTopicResources:
		err = g.client.DeleteNodeResource(ctx, version.String(), a.ConnectionID)
	case domain.KindNodeParents:
		err = g.client.DeleteNodeConnection(ctx, version.String(), a.ConnectionID)
	default:
		return errors.Errorf("unknown association kind %q", kind)
	}
	if err != nil {
		return errors.Wrapf(err, "TaxonomyGateway.DeleteAssociation %s", kind)
	}
	return nil
}
