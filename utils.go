package taxonomy

import (
	"fmt"
	"net/url"
	"strings"
)

// IDFromLocation extracts the created entity id from a 201 Location header.
//
// The taxonomy service answers with paths such as "/v1/nodes/urn:topic:1:42".
func IDFromLocation(location string) (string, error) {
	if location == "" {
		return "", fmt.Errorf("empty location")
	}
	u, err := url.Parse(location)
	if err != nil {
		return "", fmt.Errorf("invalid location %q", location)
	}

	path := strings.TrimSuffix(u.Path, "/")
	idx := strings.LastIndex(path, "/")
	id := path[idx+1:]
	if id == "" {
		return "", fmt.Errorf("location %q has no id", location)
	}

	unescaped, err := url.PathUnescape(id)
	if err != nil {
		return "", fmt.Errorf("invalid location %q", location)
	}
	return unescaped, nil
}

func hasURNKind(id, kind string) bool {
	return strings.HasPrefix(id, "urn:"+kind+":")
}

func IsResourceID(id string) bool {
	return hasURNKind(id, "resource")
}

func IsNodeResourceConnection(connectionID string) bool {
	return hasURNKind(connectionID, "node-resource") || hasURNKind(connectionID, "topic-resource")
}

func IsNodeConnection(connectionID string) bool {
	return hasURNKind(connectionID, "node-connection") || hasURNKind(connectionID, "topic-subtopic") ||
		hasURNKind(connectionID, "subject-topic")
}
