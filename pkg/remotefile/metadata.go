package remotefile

import (
	"context"
	"time"

	"github.com/toyang/node-smb-server/pkg/dam"
)

// Kind classifies a repository node by its primary type.
type Kind int

const (
	KindOther Kind = iota
	KindFile
	KindDirectory
)

var fileTypes = map[string]bool{
	"nt:file":   true,
	"dam:Asset": true,
}

var folderTypes = map[string]bool{
	"nt:folder":           true,
	"sling:Folder":        true,
	"sling:OrderedFolder": true,
}

// Classify maps a primary node type to a Kind. Unknown types are KindOther.
func Classify(primaryType string) Kind {
	switch {
	case fileTypes[primaryType]:
		return KindFile
	case folderTypes[primaryType]:
		return KindDirectory
	default:
		return KindOther
	}
}

// ContentInfo is the nested content record carried by file-typed nodes.
type ContentInfo struct {
	LastModified time.Time
	Size         int64
}

// NodeInfo is the repository metadata a handle is constructed from.
type NodeInfo struct {
	PrimaryType string
	Created     time.Time
	Content     *ContentInfo
}

// nodeJSON mirrors the repository's JSON rendering of a node.
type nodeJSON struct {
	PrimaryType string `json:"jcr:primaryType"`
	Created     string `json:"jcr:created"`
	Content     *struct {
		LastModified string `json:"jcr:lastModified"`
		DataLength   int64  `json:":jcr:data"`
	} `json:"jcr:content"`
}

func parseRepoTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	return time.Time{}
}

func (n *nodeJSON) toNodeInfo() NodeInfo {
	info := NodeInfo{
		PrimaryType: n.PrimaryType,
		Created:     parseRepoTime(n.Created),
	}
	if n.Content != nil {
		info.Content = &ContentInfo{
			LastModified: parseRepoTime(n.Content.LastModified),
			Size:         n.Content.DataLength,
		}
	}
	return info
}

// Stat fetches the node metadata at path and constructs a handle for it.
func Stat(ctx context.Context, client *dam.Client, path, stagingDir string) (*File, error) {
	var raw nodeJSON
	if err := client.GetJSON(ctx, path, &raw); err != nil {
		return nil, err
	}
	return New(client, path, raw.toNodeInfo(), stagingDir), nil
}
