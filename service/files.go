package service

import (
	"context"

	"adbdeck/adb"
	"adbdeck/models"
)

// PushFiles pushes each local file into remoteDir, one at a time. A failed
// file is reported in its result and does not stop the rest.
func PushFiles(ctx context.Context, client *adb.ADBClient, deviceID string, locals []string, remoteDir string) []models.PushResult {
	results := make([]models.PushResult, 0, len(locals))
	for _, local := range locals {
		out, err := client.Push(ctx, deviceID, local, remoteDir)
		r := models.PushResult{LocalPath: local, Output: out}
		if err != nil {
			r.Error = err.Error()
		}
		results = append(results, r)
	}
	return results
}
