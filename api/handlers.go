package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"adbdeck/adb"
	"adbdeck/models"
	"adbdeck/service"
)

const defaultRemoteDir = "/sdcard"

// statusOf maps dispatch errors to HTTP status codes.
func statusOf(err error) int {
	switch {
	case errors.Is(err, service.ErrUnknownAction):
		return http.StatusNotFound
	case errors.Is(err, service.ErrNoDevice),
		errors.Is(err, service.ErrMissingParam),
		errors.Is(err, adb.ErrInvalidArg):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrStopped):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func fail(c *gin.Context, err error) {
	c.JSON(statusOf(err), models.ErrorResponse(err))
}

func Health(c *gin.Context, d Deps) {
	c.JSON(http.StatusOK, models.SuccessResponse(gin.H{
		"status":  "ok",
		"devices": len(d.Devices.GetAllDevices()),
		"clients": d.Hub.ClientCount(),
	}))
}

// GetDevices returns the last scan and the selection.
func GetDevices(c *gin.Context, dm *service.DeviceManager) {
	c.JSON(http.StatusOK, models.SuccessResponse(dm.Snapshot()))
}

// GetDevice returns one device of the last scan.
func GetDevice(c *gin.Context, dm *service.DeviceManager) {
	d, ok := dm.GetDevice(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, models.ErrorResponse(fmt.Errorf("%w: %s is not connected", service.ErrNoDevice, c.Param("id"))))
		return
	}
	c.JSON(http.StatusOK, models.SuccessResponse(d))
}

// ScanDevices rescans connected devices
func ScanDevices(c *gin.Context, dm *service.DeviceManager) {
	if _, err := dm.ScanDevices(c.Request.Context()); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, models.SuccessResponse(dm.Snapshot()))
}

type selectRequest struct {
	DeviceID string `json:"device_id" binding:"required"`
}

func SelectDevice(c *gin.Context, dm *service.DeviceManager) {
	var req selectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse(err))
		return
	}
	if err := dm.SelectDevice(c.Request.Context(), req.DeviceID); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, models.SuccessResponse(dm.Snapshot()))
}

func GetActions(c *gin.Context) {
	c.JSON(http.StatusOK, models.SuccessResponse(service.Catalog()))
}

// actionFromParam accepts either the numeric identifier or the name.
func actionFromParam(s string) (models.Action, bool) {
	if id, err := strconv.Atoi(s); err == nil {
		return service.LookupAction(id)
	}
	return service.LookupActionName(s)
}

// RunAction dispatches one action. By default it waits for the result;
// with ?async=true it answers 202 with the job id and the result arrives
// over the websocket.
func RunAction(c *gin.Context, jobs *service.Jobs) {
	a, ok := actionFromParam(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, models.ErrorResponse(service.ErrUnknownAction))
		return
	}

	var req models.ActionRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse(err))
			return
		}
	}

	jobID, done, err := jobs.Submit(c.Request.Context(), a.ID, req.DeviceID, req.ActionParams)
	if err != nil {
		fail(c, err)
		return
	}
	if async, _ := strconv.ParseBool(c.Query("async")); async {
		c.JSON(http.StatusAccepted, models.SuccessResponse(gin.H{"job_id": jobID}))
		return
	}

	select {
	case res := <-done:
		c.JSON(http.StatusOK, models.SuccessResponse(res))
	case <-c.Request.Context().Done():
		// The job keeps running; its result is still broadcast.
	}
}

// GetPackages lists installed packages with placeholder names and starts
// label enrichment in the background unless ?labels=false. Labels are
// pushed over the websocket as they arrive.
func GetPackages(c *gin.Context, d Deps) {
	id := c.Param("id")
	pkgs, err := d.Client.Packages(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}

	if enrich, err := strconv.ParseBool(c.DefaultQuery("labels", "true")); err == nil && enrich && len(pkgs) > 0 {
		go func() {
			err := d.Enricher.Enrich(d.Context, id, pkgs, d.Devices.PublishLabel)
			if err != nil {
				d.Log.Debug().Err(err).Str("device", id).Msg("enrichment stopped")
			}
		}()
	}
	c.JSON(http.StatusOK, models.SuccessResponse(pkgs))
}

func GetAppDetails(c *gin.Context, client *adb.ADBClient) {
	details, err := client.AppDetails(c.Request.Context(), c.Param("id"), c.Param("pkg"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, models.SuccessResponse(details))
}

func ListFiles(c *gin.Context, client *adb.ADBClient) {
	entries, err := client.ListDir(c.Request.Context(), c.Param("id"), c.DefaultQuery("path", defaultRemoteDir))
	if err != nil {
		fail(c, err)
		return
	}
	if entries == nil {
		entries = []models.DirEntry{}
	}
	c.JSON(http.StatusOK, models.SuccessResponse(entries))
}

type mkdirRequest struct {
	Path string `json:"path" binding:"required"`
}

func MakeDir(c *gin.Context, client *adb.ADBClient) {
	var req mkdirRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse(err))
		return
	}
	if err := client.Mkdir(c.Request.Context(), c.Param("id"), req.Path); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, models.MessageResponse("created "+req.Path))
}

type pushRequest struct {
	Files  []string `json:"files" binding:"required,min=1"`
	Remote string   `json:"remote" binding:"required"`
}

// PushFiles pushes local files one by one and reports each outcome.
func PushFiles(c *gin.Context, client *adb.ADBClient) {
	var req pushRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse(err))
		return
	}
	if err := adb.ValidateDeviceID(c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	results := service.PushFiles(c.Request.Context(), client, c.Param("id"), req.Files, req.Remote)
	c.JSON(http.StatusOK, models.SuccessResponse(results))
}

func GetHistory(c *gin.Context, history *service.HistoryStore) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	recs, err := history.Recent(c.Request.Context(), limit)
	if err != nil {
		fail(c, err)
		return
	}
	if recs == nil {
		recs = []models.HistoryRecord{}
	}
	c.JSON(http.StatusOK, models.SuccessResponse(recs))
}
