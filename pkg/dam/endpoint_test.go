package dam

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEndpointURLs(t *testing.T) {
	e := &Endpoint{
		Host:      "repo.example.com",
		Port:      4502,
		BasePath:  "",
		AssetAPI:  "/api/assets",
		AssetRoot: "/content/dam",
	}

	require.Equal(t, "http://repo.example.com:4502/content/dam/a.txt", e.URL("/content/dam/a.txt"))
	require.Equal(t, "http://repo.example.com:4502/api/assets/content/dam/a.txt", e.AssetURL("/content/dam/a.txt"))
}

func TestEndpointURL_TLSAndDefaultPort(t *testing.T) {
	e := &Endpoint{Host: "repo.example.com", Secure: true}
	require.Equal(t, "https://repo.example.com/x", e.URL("/x"))
}

func TestInAssetTree(t *testing.T) {
	e := &Endpoint{AssetRoot: "/content/dam"}

	require.True(t, e.InAssetTree("/content/dam"))
	require.True(t, e.InAssetTree("/content/dam/projects/logo.png"))
	require.False(t, e.InAssetTree("/content/damaged"))
	require.False(t, e.InAssetTree("/apps/config"))
	require.False(t, (&Endpoint{}).InAssetTree("/content/dam/a"))
}
