package handlers

import (
	"path"
	"strings"

	"github.com/serroba/ringtones/internal/catalog"
)

// thumbnailURL turns a stored thumbnail key into the public URL serving it.
func thumbnailURL(baseURL, key string) string {
	if key == "" {
		return ""
	}

	return strings.TrimSuffix(baseURL, "/") + "/api/thumbnails/" + path.Base(key)
}

func toRingtoneBody(baseURL string, r *catalog.Ringtone) RingtoneBody {
	body := RingtoneBody{
		ID:            r.ID,
		NumericID:     r.NumericID,
		Name:          r.Name,
		Slug:          r.Slug,
		Description:   r.Description,
		FileSize:      r.FileSize,
		ThumbnailURL:  thumbnailURL(baseURL, r.ThumbnailKey),
		Tags:          toTagBodies(r.Tags),
		DownloadCount: r.DownloadCount,
		Active:        r.Active,
		CreatedAt:     r.CreatedAt,
	}

	if r.CategoryID != nil {
		body.Category = &CategoryRef{ID: *r.CategoryID, Name: r.CategoryName, Slug: r.CategorySlug}
	}

	return body
}

func (req *SearchRequest) query() catalog.SearchQuery {
	return catalog.SearchQuery{
		Query:    req.Query,
		Category: req.Category,
		Tag:      req.Tag,
		Sort:     catalog.ParseSort(req.Sort),
		Page:     req.Page,
		Limit:    req.Limit,
	}
}

func toSearchResponse(baseURL string, page *catalog.SearchPage) *SearchResponse {
	resp := &SearchResponse{}
	resp.Body.Ringtones = make([]RingtoneBody, 0, len(page.Ringtones))

	for i := range page.Ringtones {
		resp.Body.Ringtones = append(resp.Body.Ringtones, toRingtoneBody(baseURL, &page.Ringtones[i]))
	}

	resp.Body.Pagination = Pagination{
		Page:       page.Page,
		Limit:      page.Limit,
		Total:      page.Total,
		TotalPages: page.TotalPages,
	}

	return resp
}

func toAdminAdBody(ad *catalog.Advertisement) AdminAdBody {
	return AdminAdBody{
		ID:          ad.ID,
		Name:        ad.Name,
		Code:        ad.Code,
		Placement:   ad.PlacementSlug,
		Active:      ad.Active,
		Impressions: ad.Impressions,
		CreatedAt:   ad.CreatedAt,
	}
}

func toTagBodies(tags []catalog.Tag) []TagBody {
	out := make([]TagBody, 0, len(tags))
	for _, t := range tags {
		out = append(out, TagBody{ID: t.ID, Name: t.Name, Slug: t.Slug})
	}

	return out
}

func toSuggestionBody(s catalog.Suggestion) SuggestionBody {
	return SuggestionBody{ID: s.ID, NumericID: s.NumericID, Name: s.Name, CategoryName: s.CategoryName}
}
