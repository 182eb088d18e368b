package controller

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/songquanpeng/poe-bridge/common/helper"
	relaymodel "github.com/songquanpeng/poe-bridge/relay/model"
)

// OpenAIModelPermission mirrors the permission block OpenAI attaches to model
// objects. All bots get the same restricted block.
type OpenAIModelPermission struct {
	Id                 string  `json:"id"`
	Object             string  `json:"object"`
	Created            int64   `json:"created"`
	AllowCreateEngine  bool    `json:"allow_create_engine"`
	AllowSampling      bool    `json:"allow_sampling"`
	AllowLogprobs      bool    `json:"allow_logprobs"`
	AllowSearchIndices bool    `json:"allow_search_indices"`
	AllowView          bool    `json:"allow_view"`
	AllowFineTuning    bool    `json:"allow_fine_tuning"`
	Organization       string  `json:"organization"`
	Group              *string `json:"group"`
	IsBlocking         bool    `json:"is_blocking"`
}

// OpenAIModel is one catalog entry. ContextWindow is a bridge extension.
type OpenAIModel struct {
	Id            string                  `json:"id"`
	Object        string                  `json:"object"`
	Created       int64                   `json:"created"`
	OwnedBy       string                  `json:"owned_by"`
	ContextWindow int                     `json:"context_window"`
	Permission    []OpenAIModelPermission `json:"permission"`
}

// OpenAIModelList is the /v1/models response body.
type OpenAIModelList struct {
	Object string        `json:"object"`
	Data   []OpenAIModel `json:"data"`
}

// ModelCatalog is the advertised bot catalog. It is built once at startup and
// never mutated, so handlers read it without locking. The catalog is
// advisory: requests may name any bot, the upstream service is authoritative.
type ModelCatalog struct {
	list OpenAIModelList
	byID map[string]OpenAIModel
}

type catalogEntry struct {
	id            string
	contextWindow int
}

var defaultCatalogEntries = []catalogEntry{
	{"Claude-Sonnet-4", 200000},
	{"Claude-Opus-4", 200000},
	{"Claude-3.7-Sonnet", 200000},
	{"Claude-3.5-Sonnet", 200000},
	{"GPT-4o", 128000},
	{"GPT-4o-mini", 128000},
	{"Gemini-2.0-Flash", 1000000},
	{"Gemini-2.5-Pro-Exp", 1000000},
}

// NewModelCatalog builds the catalog with a shared creation timestamp.
func NewModelCatalog() *ModelCatalog {
	created := helper.GetTimestamp()
	catalog := &ModelCatalog{
		list: OpenAIModelList{Object: "list"},
		byID: make(map[string]OpenAIModel, len(defaultCatalogEntries)),
	}

	for _, entry := range defaultCatalogEntries {
		model := OpenAIModel{
			Id:            entry.id,
			Object:        "model",
			Created:       created,
			OwnedBy:       "poe-bridge",
			ContextWindow: entry.contextWindow,
			Permission: []OpenAIModelPermission{
				{
					Id:           fmt.Sprintf("modelperm-%s", strings.ReplaceAll(strings.ToLower(entry.id), "-", "")),
					Object:       "model_permission",
					Created:      created,
					AllowView:    true,
					Organization: "*",
				},
			},
		}
		catalog.list.Data = append(catalog.list.Data, model)
		catalog.byID[entry.id] = model
	}
	return catalog
}

// ListModels serves GET /v1/models.
func (mc *ModelCatalog) ListModels(c *gin.Context) {
	c.JSON(http.StatusOK, mc.list)
}

// RetrieveModel serves GET /v1/models/:model.
func (mc *ModelCatalog) RetrieveModel(c *gin.Context) {
	modelID := c.Param("model")
	if model, ok := mc.byID[modelID]; ok {
		c.JSON(http.StatusOK, model)
		return
	}
	c.JSON(http.StatusNotFound, gin.H{
		"error": relaymodel.Error{
			Message: fmt.Sprintf("The model '%s' does not exist", modelID),
			Type:    relaymodel.ErrTypeInvalidRequest,
			Param:   "model",
			Code:    "model_not_found",
		},
	})
}
