// Package taxonomyfake is an in-memory taxonomy service for tests.
package taxonomyfake

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/labstack/echo/v4"

	"github.com/totegamma/taxonomy-sync"
)

type connection struct {
	id          string
	parentID    string
	childID     string
	primary     bool
	rank        int
	relevanceID string
	resource    bool
}

type typeLink struct {
	id         string
	resourceID string
	typeID     string
}

type filterLink struct {
	id          string
	resourceID  string
	filterID    string
	relevanceID string
}

type store struct {
	nodes       map[string]*taxonomy.Node
	connections map[string]*connection
	types       map[string]*typeLink
	filters     map[string]*filterLink
}

func newStore() *store {
	return &store{
		nodes:       map[string]*taxonomy.Node{},
		connections: map[string]*connection{},
		types:       map[string]*typeLink{},
		filters:     map[string]*filterLink{},
	}
}

// Request is one call the fake has served.
type Request struct {
	Method  string
	Path    string
	Version string
}

type failure struct {
	method string
	prefix string
	status int
}

// Server serves the taxonomy endpoints the client uses. Every VersionHash gets its own data.
type Server struct {
	e        *echo.Echo
	mu       sync.Mutex
	versions map[string]*store
	seq      int
	failures []failure
	requests []Request
}

func New() *Server {
	s := &Server{
		e:        echo.New(),
		versions: map[string]*store{},
	}
	s.e.Use(s.intercept)

	v1 := s.e.Group("/v1")
	v1.GET("/nodes", s.listNodes)
	v1.POST("/nodes", s.postNode)
	v1.GET("/nodes/:id", s.getNode)
	v1.PATCH("/nodes/:id/metadata", s.patchMetadata)
	v1.DELETE("/nodes/:id", s.deleteNode)
	v1.GET("/nodes/:id/connections", s.getConnections)
	v1.GET("/nodes/:id/nodes", s.getChildren)
	v1.GET("/nodes/:id/resources", s.getResources)

	v1.POST("/node-connections", s.postConnection(false))
	v1.PUT("/node-connections/:id", s.putConnection(false))
	v1.DELETE("/node-connections/:id", s.deleteConnection(false))
	v1.POST("/node-resources", s.postConnection(true))
	v1.PUT("/node-resources/:id", s.putConnection(true))
	v1.DELETE("/node-resources/:id", s.deleteConnection(true))

	v1.GET("/resources/:id/resource-types", s.getResourceTypes)
	v1.POST("/resource-resourcetypes", s.postResourceType)
	v1.DELETE("/resource-resourcetypes/:id", s.deleteResourceType)
	v1.GET("/resources/:id/filters", s.getFilters)
	v1.POST("/resource-filters", s.postFilter)
	v1.PUT("/resource-filters/:id", s.putFilter)
	v1.DELETE("/resource-filters/:id", s.deleteFilter)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.e.ServeHTTP(w, r)
}

// Fail makes every request whose method matches and whose path starts with prefix
// answer with status.
func (s *Server) Fail(method, prefix string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, failure{method: method, prefix: prefix, status: status})
}

func (s *Server) ClearFailures() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = nil
}

// Requests returns the served calls matching method and path prefix.
func (s *Server) Requests(method, prefix string) []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	var matched []Request
	for _, r := range s.requests {
		if (method == "" || r.Method == method) && strings.HasPrefix(r.Path, prefix) {
			matched = append(matched, r)
		}
	}
	return matched
}

func (s *Server) intercept(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method:  req.Method,
			Path:    req.URL.Path,
			Version: req.Header.Get(taxonomy.VersionHeader),
		})
		for _, f := range s.failures {
			if f.method == req.Method && strings.HasPrefix(req.URL.Path, f.prefix) {
				s.mu.Unlock()
				return c.JSON(f.status, echo.Map{"messages": []string{"injected failure"}})
			}
		}
		s.mu.Unlock()
		return next(c)
	}
}

// data returns the store of the request's version. Callers hold s.mu.
func (s *Server) data(c echo.Context) *store {
	return s.version(c.Request().Header.Get(taxonomy.VersionHeader))
}

func (s *Server) version(version string) *store {
	if version == "" {
		version = taxonomy.DefaultVersion
	}
	st, ok := s.versions[version]
	if !ok {
		st = newStore()
		s.versions[version] = st
	}
	return st
}

func (s *Server) nextID(kind string) string {
	s.seq++
	return fmt.Sprintf("urn:%s:%d", kind, s.seq)
}

func notFound(c echo.Context, what string) error {
	return c.JSON(http.StatusNotFound, echo.Map{"messages": []string{what + " not found"}})
}

func created(c echo.Context, collection, id string) error {
	c.Response().Header().Set("Location", "/v1/"+collection+"/"+id)
	return c.NoContent(http.StatusCreated)
}

// seeding

func (s *Server) AddNode(version string, node taxonomy.Node) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := node
	s.version(version).nodes[n.ID] = &n
}

// AddConnection links child under parent and returns the connection id.
func (s *Server) AddConnection(version, parentID, childID string, rank int, primary bool) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	resource := taxonomy.IsResourceID(childID)
	kind := "node-connection"
	if resource {
		kind = "node-resource"
	}
	id := s.nextID(kind)
	s.version(version).connections[id] = &connection{
		id:       id,
		parentID: parentID,
		childID:  childID,
		rank:     rank,
		primary:  primary,
		resource: resource,
	}
	return id
}

func (s *Server) AddResourceType(version, resourceID, typeID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID("resource-resourcetype")
	s.version(version).types[id] = &typeLink{id: id, resourceID: resourceID, typeID: typeID}
	return id
}

func (s *Server) AddFilter(version, resourceID, filterID, relevanceID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID("resource-filter")
	s.version(version).filters[id] = &filterLink{id: id, resourceID: resourceID, filterID: filterID, relevanceID: relevanceID}
	return id
}

// ParentConnections returns the ids of the connections child hangs from.
func (s *Server) ParentConnections(version, childID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for _, conn := range s.version(version).connections {
		if conn.childID == childID {
			ids = append(ids, conn.id)
		}
	}
	sort.Strings(ids)
	return ids
}

// ConnectionParent returns the parent of connection id, if the connection exists.
func (s *Server) ConnectionParent(version, id string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conn, ok := s.version(version).connections[id]
	if !ok {
		return "", false
	}
	return conn.parentID, true
}

// ConnectionRank returns the rank of connection id, if the connection exists.
func (s *Server) ConnectionRank(version, id string) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conn, ok := s.version(version).connections[id]
	if !ok {
		return 0, false
	}
	return conn.rank, true
}

// ResourceTypes returns the type ids linked to resourceID, sorted.
func (s *Server) ResourceTypes(version, resourceID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for _, link := range s.version(version).types {
		if link.resourceID == resourceID {
			ids = append(ids, link.typeID)
		}
	}
	sort.Strings(ids)
	return ids
}

// Filters returns filter id to relevance for resourceID.
func (s *Server) Filters(version, resourceID string) map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := map[string]string{}
	for _, link := range s.version(version).filters {
		if link.resourceID == resourceID {
			result[link.filterID] = link.relevanceID
		}
	}
	return result
}

// nodes

func (s *Server) getNode(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	node, ok := s.data(c).nodes[c.Param("id")]
	if !ok {
		return notFound(c, "node")
	}
	return c.JSON(http.StatusOK, node)
}

func (s *Server) listNodes(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	nodeType := c.QueryParam("nodeType")
	key := c.QueryParam("key")
	value := c.QueryParam("value")

	nodes := []taxonomy.Node{}
	for _, n := range s.data(c).nodes {
		if nodeType != "" && string(n.NodeType) != nodeType {
			continue
		}
		if key != "" && n.Metadata.CustomFields[key] != value {
			continue
		}
		nodes = append(nodes, *n)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
	return c.JSON(http.StatusOK, nodes)
}

func (s *Server) postNode(c echo.Context) error {
	var body taxonomy.NodePostPut
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"messages": []string{err.Error()}})
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	id := ""
	if body.ID != nil {
		id = *body.ID
	} else {
		id = s.nextID(strings.ToLower(string(body.NodeType)))
	}
	visible := true
	if body.Visible != nil {
		visible = *body.Visible
	}
	s.data(c).nodes[id] = &taxonomy.Node{
		ID:         id,
		Name:       body.Name,
		NodeType:   body.NodeType,
		ContentURI: body.ContentURI,
		Metadata:   taxonomy.Metadata{Visible: visible, GrepCodes: []string{}, CustomFields: map[string]string{}},
	}
	return created(c, "nodes", id)
}

func (s *Server) patchMetadata(c echo.Context) error {
	var patch taxonomy.MetadataPatch
	if err := c.Bind(&patch); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"messages": []string{err.Error()}})
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	node, ok := s.data(c).nodes[c.Param("id")]
	if !ok {
		return notFound(c, "node")
	}
	if patch.GrepCodes != nil {
		node.Metadata.GrepCodes = *patch.GrepCodes
	}
	if patch.Visible != nil {
		node.Metadata.Visible = *patch.Visible
	}
	if patch.CustomFields != nil {
		node.Metadata.CustomFields = *patch.CustomFields
	}
	return c.JSON(http.StatusOK, node.Metadata)
}

func (s *Server) deleteNode(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.data(c)
	id := c.Param("id")
	if _, ok := st.nodes[id]; !ok {
		return notFound(c, "node")
	}
	delete(st.nodes, id)
	for connID, conn := range st.connections {
		if conn.parentID == id || conn.childID == id {
			delete(st.connections, connID)
		}
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) getConnections(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := c.Param("id")
	result := []taxonomy.Connection{}
	for _, conn := range s.data(c).connections {
		switch id {
		case conn.childID:
			result = append(result, taxonomy.Connection{
				ConnectionID: conn.id,
				TargetID:     conn.parentID,
				Type:         taxonomy.ConnectionTypeParent,
				IsPrimary:    conn.primary,
				Rank:         conn.rank,
				RelevanceID:  optional(conn.relevanceID),
			})
		case conn.parentID:
			kind := taxonomy.ConnectionTypeSubtopic
			if conn.resource {
				kind = taxonomy.ConnectionTypeResource
			}
			result = append(result, taxonomy.Connection{
				ConnectionID: conn.id,
				TargetID:     conn.childID,
				Type:         kind,
				IsPrimary:    conn.primary,
				Rank:         conn.rank,
				RelevanceID:  optional(conn.relevanceID),
			})
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ConnectionID < result[j].ConnectionID })
	return c.JSON(http.StatusOK, result)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (s *Server) childrenOf(st *store, parentID string, resources bool) []*connection {
	var links []*connection
	for _, conn := range st.connections {
		if conn.parentID == parentID && conn.resource == resources {
			links = append(links, conn)
		}
	}
	sort.Slice(links, func(i, j int) bool {
		if links[i].rank != links[j].rank {
			return links[i].rank < links[j].rank
		}
		return links[i].childID < links[j].childID
	})
	return links
}

func (s *Server) childNode(st *store, conn *connection) taxonomy.Node {
	node, ok := st.nodes[conn.childID]
	if !ok {
		node = &taxonomy.Node{ID: conn.childID, Name: conn.childID}
	}
	n := *node
	n.RelevanceID = optional(conn.relevanceID)
	return n
}

func (s *Server) getChildren(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.data(c)
	result := []taxonomy.NodeChild{}
	for _, conn := range s.childrenOf(st, c.Param("id"), false) {
		result = append(result, taxonomy.NodeChild{
			Node:         s.childNode(st, conn),
			ParentID:     conn.parentID,
			ConnectionID: conn.id,
			Rank:         conn.rank,
			IsPrimary:    conn.primary,
		})
	}
	return c.JSON(http.StatusOK, result)
}

func (s *Server) getResources(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.data(c)
	result := []taxonomy.NodeResource{}
	for _, conn := range s.childrenOf(st, c.Param("id"), true) {
		result = append(result, taxonomy.NodeResource{
			Node:         s.childNode(st, conn),
			ParentID:     conn.parentID,
			ConnectionID: conn.id,
			Rank:         conn.rank,
			IsPrimary:    conn.primary,
		})
	}
	return c.JSON(http.StatusOK, result)
}

// connections

func (s *Server) postConnection(resource bool) echo.HandlerFunc {
	return func(c echo.Context) error {
		var parentID, childID string
		var primary *bool
		var rank *int
		var relevance *string
		if resource {
			var body taxonomy.NodeResourcePost
			if err := c.Bind(&body); err != nil {
				return c.JSON(http.StatusBadRequest, echo.Map{"messages": []string{err.Error()}})
			}
			parentID, childID, primary, rank, relevance = body.NodeID, body.ResourceID, body.Primary, body.Rank, body.RelevanceID
		} else {
			var body taxonomy.NodeConnectionPost
			if err := c.Bind(&body); err != nil {
				return c.JSON(http.StatusBadRequest, echo.Map{"messages": []string{err.Error()}})
			}
			parentID, childID, primary, rank, relevance = body.ParentID, body.ChildID, body.Primary, body.Rank, body.RelevanceID
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		st := s.data(c)

		conn := &connection{parentID: parentID, childID: childID, resource: resource}
		if primary != nil {
			conn.primary = *primary
		}
		if relevance != nil {
			conn.relevanceID = *relevance
		}
		if rank != nil {
			conn.rank = *rank
		} else {
			for _, sibling := range s.childrenOf(st, parentID, resource) {
				if sibling.rank >= conn.rank {
					conn.rank = sibling.rank + 1
				}
			}
		}

		collection := "node-connections"
		kind := "node-connection"
		if resource {
			collection = "node-resources"
			kind = "node-resource"
		}
		conn.id = s.nextID(kind)
		st.connections[conn.id] = conn
		return created(c, collection, conn.id)
	}
}

func (s *Server) putConnection(resource bool) echo.HandlerFunc {
	return func(c echo.Context) error {
		var body taxonomy.ConnectionPut
		if err := c.Bind(&body); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"messages": []string{err.Error()}})
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		st := s.data(c)
		conn, ok := st.connections[c.Param("id")]
		if !ok || conn.resource != resource {
			return notFound(c, "connection")
		}
		if body.Primary != nil {
			conn.primary = *body.Primary
		}
		if body.RelevanceID != nil {
			conn.relevanceID = *body.RelevanceID
		}
		if body.Rank != nil && *body.Rank != conn.rank {
			for _, sibling := range s.childrenOf(st, conn.parentID, resource) {
				if sibling.id != conn.id && sibling.rank >= *body.Rank {
					sibling.rank++
				}
			}
			conn.rank = *body.Rank
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func (s *Server) deleteConnection(resource bool) echo.HandlerFunc {
	return func(c echo.Context) error {
		s.mu.Lock()
		defer s.mu.Unlock()
		st := s.data(c)
		conn, ok := st.connections[c.Param("id")]
		if !ok || conn.resource != resource {
			return notFound(c, "connection")
		}
		delete(st.connections, conn.id)
		return c.NoContent(http.StatusNoContent)
	}
}

// resource types and filters

func (s *Server) getResourceTypes(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := []taxonomy.ResourceTypeConnection{}
	for _, link := range s.data(c).types {
		if link.resourceID == c.Param("id") {
			result = append(result, taxonomy.ResourceTypeConnection{ID: link.typeID, Name: link.typeID, ConnectionID: link.id})
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return c.JSON(http.StatusOK, result)
}

func (s *Server) postResourceType(c echo.Context) error {
	var body taxonomy.ResourceResourceTypePost
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"messages": []string{err.Error()}})
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID("resource-resourcetype")
	s.data(c).types[id] = &typeLink{id: id, resourceID: body.ResourceID, typeID: body.ResourceTypeID}
	return created(c, "resource-resourcetypes", id)
}

func (s *Server) deleteResourceType(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.data(c)
	if _, ok := st.types[c.Param("id")]; !ok {
		return notFound(c, "resource type connection")
	}
	delete(st.types, c.Param("id"))
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) getFilters(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := []taxonomy.FilterConnection{}
	for _, link := range s.data(c).filters {
		if link.resourceID == c.Param("id") {
			result = append(result, taxonomy.FilterConnection{ID: link.filterID, Name: link.filterID, ConnectionID: link.id, RelevanceID: link.relevanceID})
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return c.JSON(http.StatusOK, result)
}

func (s *Server) postFilter(c echo.Context) error {
	var body taxonomy.ResourceFilterPost
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"messages": []string{err.Error()}})
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID("resource-filter")
	s.data(c).filters[id] = &filterLink{id: id, resourceID: body.ResourceID, filterID: body.FilterID, relevanceID: body.RelevanceID}
	return created(c, "resource-filters", id)
}

func (s *Server) putFilter(c echo.Context) error {
	var body taxonomy.ResourceFilterPut
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"messages": []string{err.Error()}})
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	link, ok := s.data(c).filters[c.Param("id")]
	if !ok {
		return notFound(c, "filter connection")
	}
	link.relevanceID = body.RelevanceID
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) deleteFilter(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.data(c)
	if _, ok := st.filters[c.Param("id")]; !ok {
		return notFound(c, "filter connection")
	}
	delete(st.filters, c.Param("id"))
	return c.NoContent(http.StatusNoContent)
}
