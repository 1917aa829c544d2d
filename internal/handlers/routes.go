package handlers

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/ringtones/internal/middleware"
	"github.com/serroba/ringtones/internal/ratelimit"
)

// Handlers groups everything RegisterRoutes needs.
type Handlers struct {
	Catalog   *CatalogHandler
	Downloads *DownloadHandler
	Ads       *AdHandler
	Admin     *AdminHandler
}

func scope(s ratelimit.Scope) map[string]any {
	return map[string]any{ratelimit.MetadataKey: ratelimit.EndpointConfig{Scope: s}}
}

func admin(cfg middleware.AdminConfig) map[string]any {
	return map[string]any{
		ratelimit.MetadataKey:       ratelimit.EndpointConfig{Scope: ratelimit.ScopeAPI},
		middleware.AdminMetadataKey: cfg,
	}
}

// RegisterRoutes registers the public and admin API with per-endpoint rate limit scopes.
func RegisterRoutes(api huma.API, h Handlers) {
	huma.Register(api, huma.Operation{
		OperationID: "get-ringtone",
		Method:      http.MethodGet,
		Path:        "/api/ringtones/{id}",
		Summary:     "Get ringtone",
		Description: "Looks up an active ringtone by numeric id, falling back to the internal id.",
		Tags:        []string{"Ringtones"},
		Metadata:    scope(ratelimit.ScopeAPI),
	}, h.Catalog.GetRingtone)

	huma.Register(api, huma.Operation{
		OperationID: "search-ringtones",
		Method:      http.MethodGet,
		Path:        "/api/search",
		Summary:     "Search ringtones",
		Tags:        []string{"Ringtones"},
		Metadata:    scope(ratelimit.ScopeAPI),
	}, h.Catalog.Search)

	// Autocomplete fires on every keystroke, so it draws from its own larger pool.
	huma.Register(api, huma.Operation{
		OperationID: "autocomplete",
		Method:      http.MethodGet,
		Path:        "/api/search/autocomplete",
		Summary:     "Autocomplete ringtone names and ids",
		Tags:        []string{"Ringtones"},
		Metadata:    scope(ratelimit.ScopeSearch),
	}, h.Catalog.Autocomplete)

	huma.Register(api, huma.Operation{
		OperationID: "list-categories",
		Method:      http.MethodGet,
		Path:        "/api/categories",
		Summary:     "List categories",
		Tags:        []string{"Taxonomy"},
		Metadata:    scope(ratelimit.ScopeAPI),
	}, h.Catalog.ListCategories)

	huma.Register(api, huma.Operation{
		OperationID: "list-tags",
		Method:      http.MethodGet,
		Path:        "/api/tags",
		Summary:     "List tags",
		Tags:        []string{"Taxonomy"},
		Metadata:    scope(ratelimit.ScopeAPI),
	}, h.Catalog.ListTags)

	huma.Register(api, huma.Operation{
		OperationID: "download-ticket",
		Method:      http.MethodGet,
		Path:        "/api/download/{id}/ticket",
		Summary:     "Issue download token",
		Description: "Issues a short-lived token and the URL that downloads the ringtone with it.",
		Tags:        []string{"Downloads"},
		Metadata:    scope(ratelimit.ScopeAPI),
	}, h.Downloads.Ticket)

	huma.Register(api, huma.Operation{
		OperationID: "download-ringtone",
		Method:      http.MethodGet,
		Path:        "/api/download/{id}",
		Summary:     "Download ringtone file",
		Tags:        []string{"Downloads"},
		Metadata:    scope(ratelimit.ScopeDownload),
		Responses: map[string]*huma.Response{
			"200": {Description: "Audio file", Content: map[string]*huma.MediaType{"audio/*": {}}},
		},
	}, h.Downloads.Download)

	huma.Register(api, huma.Operation{
		OperationID: "get-thumbnail",
		Method:      http.MethodGet,
		Path:        "/api/thumbnails/{name}",
		Summary:     "Get thumbnail image",
		Tags:        []string{"Downloads"},
		Metadata:    map[string]any{ratelimit.MetadataKey: ratelimit.EndpointConfig{Disabled: true}},
		Responses: map[string]*huma.Response{
			"200": {Description: "Image file", Content: map[string]*huma.MediaType{"image/*": {}}},
		},
	}, h.Downloads.Thumbnail)

	huma.Register(api, huma.Operation{
		OperationID: "get-ad",
		Method:      http.MethodGet,
		Path:        "/api/ads",
		Summary:     "Get active ad for a placement",
		Tags:        []string{"Ads"},
		Metadata:    scope(ratelimit.ScopeAPI),
	}, h.Ads.GetAd)

	huma.Register(api, huma.Operation{
		OperationID:   "track-impression",
		Method:        http.MethodPost,
		Path:          "/api/ads/impression",
		Summary:       "Track ad impression",
		Tags:          []string{"Ads"},
		DefaultStatus: http.StatusNoContent,
		Metadata:      scope(ratelimit.ScopeAPI),
	}, h.Ads.Impression)

	registerAdminRoutes(api, h.Admin)
}

func registerAdminRoutes(api huma.API, h *AdminHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "admin-list-ringtones",
		Method:      http.MethodGet,
		Path:        "/api/admin/ringtones",
		Summary:     "List ringtones, inactive included",
		Tags:        []string{"Admin"},
		Metadata:    admin(middleware.AdminConfig{}),
	}, h.ListRingtones)

	huma.Register(api, huma.Operation{
		OperationID:   "create-ringtone",
		Method:        http.MethodPost,
		Path:          "/api/admin/ringtones",
		Summary:       "Upload a ringtone",
		Tags:          []string{"Admin"},
		DefaultStatus: http.StatusCreated,
		MaxBodyBytes:  16 << 20,
		Metadata:      admin(middleware.AdminConfig{Upload: true}),
	}, h.CreateRingtone)

	huma.Register(api, huma.Operation{
		OperationID: "admin-get-ringtone",
		Method:      http.MethodGet,
		Path:        "/api/admin/ringtones/{id}",
		Summary:     "Get a ringtone by internal id",
		Tags:        []string{"Admin"},
		Metadata:    admin(middleware.AdminConfig{}),
	}, h.GetRingtone)

	huma.Register(api, huma.Operation{
		OperationID:  "update-ringtone",
		Method:       http.MethodPut,
		Path:         "/api/admin/ringtones/{id}",
		Summary:      "Update a ringtone, optionally replacing its files",
		Tags:         []string{"Admin"},
		MaxBodyBytes: 16 << 20,
		Metadata:     admin(middleware.AdminConfig{Upload: true}),
	}, h.UpdateRingtone)

	huma.Register(api, huma.Operation{
		OperationID: "delete-ringtone",
		Method:      http.MethodDelete,
		Path:        "/api/admin/ringtones/{id}",
		Summary:     "Delete a ringtone and its files",
		Tags:        []string{"Admin"},
		Metadata:    admin(middleware.AdminConfig{}),
	}, h.DeleteRingtone)

	huma.Register(api, huma.Operation{
		OperationID: "admin-list-tags",
		Method:      http.MethodGet,
		Path:        "/api/admin/tags",
		Summary:     "List tags with usage counts",
		Tags:        []string{"Admin"},
		Metadata:    admin(middleware.AdminConfig{}),
	}, h.ListTags)

	huma.Register(api, huma.Operation{
		OperationID:   "create-tag",
		Method:        http.MethodPost,
		Path:          "/api/admin/tags",
		Summary:       "Create a tag",
		Tags:          []string{"Admin"},
		DefaultStatus: http.StatusCreated,
		Metadata:      admin(middleware.AdminConfig{}),
	}, h.CreateTag)

	huma.Register(api, huma.Operation{
		OperationID:   "delete-tag",
		Method:        http.MethodDelete,
		Path:          "/api/admin/tags/{id}",
		Summary:       "Delete a tag",
		Tags:          []string{"Admin"},
		DefaultStatus: http.StatusNoContent,
		Metadata:      admin(middleware.AdminConfig{}),
	}, h.DeleteTag)

	huma.Register(api, huma.Operation{
		OperationID: "admin-list-ads",
		Method:      http.MethodGet,
		Path:        "/api/admin/ads",
		Summary:     "List ads and placements",
		Tags:        []string{"Admin"},
		Metadata:    admin(middleware.AdminConfig{}),
	}, h.ListAds)

	huma.Register(api, huma.Operation{
		OperationID:   "create-ad",
		Method:        http.MethodPost,
		Path:          "/api/admin/ads",
		Summary:       "Create an ad",
		Tags:          []string{"Admin"},
		DefaultStatus: http.StatusCreated,
		Metadata:      admin(middleware.AdminConfig{}),
	}, h.CreateAd)

	huma.Register(api, huma.Operation{
		OperationID: "admin-get-ad",
		Method:      http.MethodGet,
		Path:        "/api/admin/ads/{id}",
		Summary:     "Get an ad",
		Tags:        []string{"Admin"},
		Metadata:    admin(middleware.AdminConfig{}),
	}, h.GetAd)

	huma.Register(api, huma.Operation{
		OperationID: "replace-ad",
		Method:      http.MethodPut,
		Path:        "/api/admin/ads/{id}",
		Summary:     "Replace an ad",
		Tags:        []string{"Admin"},
		Metadata:    admin(middleware.AdminConfig{}),
	}, h.ReplaceAd)

	huma.Register(api, huma.Operation{
		OperationID: "patch-ad",
		Method:      http.MethodPatch,
		Path:        "/api/admin/ads/{id}",
		Summary:     "Change some fields of an ad",
		Description: "Send {\"isActive\": false} to switch an ad off.",
		Tags:        []string{"Admin"},
		Metadata:    admin(middleware.AdminConfig{}),
	}, h.PatchAd)

	huma.Register(api, huma.Operation{
		OperationID:   "delete-ad",
		Method:        http.MethodDelete,
		Path:          "/api/admin/ads/{id}",
		Summary:       "Delete an ad",
		Tags:          []string{"Admin"},
		DefaultStatus: http.StatusNoContent,
		Metadata:      admin(middleware.AdminConfig{}),
	}, h.DeleteAd)

	huma.Register(api, huma.Operation{
		OperationID: "get-settings",
		Method:      http.MethodGet,
		Path:        "/api/admin/settings",
		Summary:     "Get site settings",
		Tags:        []string{"Admin"},
		Metadata:    admin(middleware.AdminConfig{}),
	}, h.GetSettings)

	huma.Register(api, huma.Operation{
		OperationID: "save-settings",
		Method:      http.MethodPost,
		Path:        "/api/admin/settings",
		Summary:     "Save site settings",
		Tags:        []string{"Admin"},
		Metadata:    admin(middleware.AdminConfig{}),
	}, h.SaveSettings)

	huma.Register(api, huma.Operation{
		OperationID: "admin-analytics",
		Method:      http.MethodGet,
		Path:        "/api/admin/analytics",
		Summary:     "Download and impression statistics",
		Tags:        []string{"Admin"},
		Metadata:    admin(middleware.AdminConfig{}),
	}, h.Analytics)
}
