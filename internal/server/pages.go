package server

import (
	"embed"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

const pageTitle = "AI Video Summary Generator"

//go:embed web
var webFS embed.FS

type dashboardAction struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Method      string `json:"method"`
	Path        string `json:"path"`
}

func loadDashboardActions() ([]dashboardAction, error) {
	data, err := webFS.ReadFile("web/dashboard.json")
	if err != nil {
		return nil, fmt.Errorf("read dashboard actions: %w", err)
	}

	var actions []dashboardAction
	if err := json.Unmarshal(data, &actions); err != nil {
		return nil, fmt.Errorf("parse dashboard actions: %w", err)
	}
	return actions, nil
}

func (a *API) handleIndex(c *gin.Context) {
	data := gin.H{"Title": pageTitle}
	if claims := currentClaims(c); claims != nil {
		data["Email"] = claims.Email()
		data["Name"] = claims.Name
	}
	if catalog := a.pipeline.Catalog(); catalog != nil {
		data["SummaryTypes"] = catalog.SummaryTypes
		data["OutputFormats"] = catalog.OutputFormats
		data["DetailLevels"] = catalog.DetailLevels
		data["MaxCustomPrompt"] = catalog.MaxCustomPrompt
	}
	c.HTML(http.StatusOK, "index.html", data)
}

func (a *API) handleDashboard(c *gin.Context) {
	data := gin.H{
		"Title":   pageTitle + " - Dashboard",
		"Actions": a.actions,
		"Bucket":  a.cfg.Storage.Bucket,
		"Topic":   a.cfg.Queue.Topic,
	}
	if claims := currentClaims(c); claims != nil {
		data["Email"] = claims.Email()
	}
	c.HTML(http.StatusOK, "dashboard.html", data)
}
