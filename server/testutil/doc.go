// Package testutil starts fully wired pipekit servers on httptest listeners.
//
//	srv := testutil.NewServer(t, server.PipelinesConfig{Registry: reg})
//	resp := srv.PostJSON(t, "/v1/run", body)
package testutil
