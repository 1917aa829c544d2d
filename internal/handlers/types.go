package handlers

import (
	"mime/multipart"
	"time"
)

// CategoryRef is the compact category embedded in ringtone responses.
type CategoryRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type TagBody struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// RingtoneBody is the public view of a ringtone. Storage keys are never exposed.
type RingtoneBody struct {
	ID            int64        `json:"id"`
	NumericID     string       `doc:"Public numeric identifier" example:"482910375" json:"numericId"`
	Name          string       `json:"name"`
	Slug          string       `json:"slug"`
	Description   string       `json:"description,omitempty"`
	FileSize      int64        `json:"fileSize"`
	ThumbnailURL  string       `json:"thumbnailUrl,omitempty"`
	Category      *CategoryRef `json:"category,omitempty"`
	Tags          []TagBody    `json:"tags"`
	DownloadCount int64        `json:"downloadCount"`
	Active        bool         `json:"isActive"`
	CreatedAt     time.Time    `json:"createdAt"`
}

type GetRingtoneRequest struct {
	ID string `doc:"Numeric id or internal id" example:"482910375" path:"id"`
}

type RingtoneResponse struct {
	Body struct {
		Ringtone RingtoneBody `json:"ringtone"`
	}
}

type SearchRequest struct {
	Query    string `doc:"Free text, or a numeric id for an exact match" query:"q"`
	Category string `doc:"Category slug"                                query:"category"`
	Tag      string `doc:"Tag slug"                                     query:"tag"`
	Sort     string `doc:"latest, popular, name or oldest; anything else sorts by latest" query:"sort"`
	Page     int    `default:"1"                                                      query:"page"`
	Limit    int    `default:"20"  doc:"Clamped to 100"                                query:"limit"`
}

type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

type SearchResponse struct {
	Body struct {
		Ringtones  []RingtoneBody `json:"ringtones"`
		Pagination Pagination     `json:"pagination"`
	}
}

type AutocompleteRequest struct {
	Query string `query:"q"`
}

type SuggestionBody struct {
	ID           int64  `json:"id"`
	NumericID    string `json:"numericId"`
	Name         string `json:"name"`
	CategoryName string `json:"categoryName,omitempty"`
}

type AutocompleteResponse struct {
	Body struct {
		Results    []SuggestionBody `json:"results"`
		ExactMatch *SuggestionBody  `json:"exactMatch"`
	}
}

type CategoryBody struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Slug          string `json:"slug"`
	Description   string `json:"description,omitempty"`
	Icon          string `json:"icon,omitempty"`
	Order         int    `json:"order"`
	ParentID      *int64 `json:"parentId,omitempty"`
	RingtoneCount int64  `json:"ringtoneCount"`
}

type CategoriesResponse struct {
	Body struct {
		Categories []CategoryBody `json:"categories"`
	}
}

type TagsResponse struct {
	Body struct {
		Tags []TagBody `json:"tags"`
	}
}

type TicketRequest struct {
	ID string `path:"id"`
}

type TicketResponse struct {
	Body struct {
		Token       string    `json:"token"`
		DownloadURL string    `json:"downloadUrl"`
		ExpiresAt   time.Time `json:"expiresAt"`
	}
}

type DownloadRequest struct {
	ID    string `path:"id"`
	Token string `query:"token"`
}

type ThumbnailRequest struct {
	Name string `example:"3f2b8c1e-6a4d-4f3e-9d2a-1b7c5e9f0a12.png" path:"name"`
}

type AdRequest struct {
	Placement string `doc:"Placement slug" example:"header" query:"placement"`
}

type AdBody struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Code string `json:"adCode"`
}

// AdResponse carries a null ad when nothing is active for the placement.
type AdResponse struct {
	Body struct {
		Ad *AdBody `json:"ad"`
	}
}

type ImpressionRequest struct {
	Body struct {
		AdID int64 `json:"adId"`
	}
}

type CreateRingtoneRequest struct {
	RawBody multipart.Form
}

type DeleteRingtoneRequest struct {
	ID int64 `path:"id"`
}

type DeleteRingtoneResponse struct {
	Body struct {
		Deleted RingtoneBody `json:"deleted"`
	}
}

type AdminRingtoneRequest struct {
	ID int64 `path:"id"`
}

type UpdateRingtoneRequest struct {
	ID      int64 `path:"id"`
	RawBody multipart.Form
}

type AdminTagBody struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Slug          string `json:"slug"`
	RingtoneCount int64  `json:"ringtoneCount"`
}

type AdminTagsResponse struct {
	Body struct {
		Tags []AdminTagBody `json:"tags"`
	}
}

type CreateTagRequest struct {
	Body struct {
		Name string `json:"name,omitempty"`
	}
}

type TagResponse struct {
	Body struct {
		Tag AdminTagBody `json:"tag"`
	}
}

type DeleteTagRequest struct {
	ID int64 `path:"id"`
}

type PlacementBody struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// AdminAdBody is the back office view of an ad, including inactive ones.
type AdminAdBody struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Code        string    `json:"adCode"`
	Placement   string    `doc:"Placement slug" json:"placement"`
	Active      bool      `json:"isActive"`
	Impressions int64     `json:"impressions"`
	CreatedAt   time.Time `json:"createdAt"`
}

type AdminAdsResponse struct {
	Body struct {
		Ads        []AdminAdBody   `json:"ads"`
		Placements []PlacementBody `json:"placements"`
	}
}

// AdInput carries ad fields. Omitted fields are left unchanged on update.
type AdInput struct {
	Name      string `json:"name,omitempty"`
	Code      string `json:"adCode,omitempty"`
	Placement string `doc:"Placement slug" json:"placement,omitempty"`
	Active    *bool  `json:"isActive,omitempty"`
}

type CreateAdRequest struct {
	Body AdInput
}

type AdminAdRequest struct {
	ID int64 `path:"id"`
}

type UpdateAdRequest struct {
	ID   int64 `path:"id"`
	Body AdInput
}

type AdminAdResponse struct {
	Body struct {
		Ad AdminAdBody `json:"ad"`
	}
}

type SettingsResponse struct {
	Body struct {
		Settings map[string]string `json:"settings"`
	}
}

// SaveSettingsRequest accepts any JSON scalar per key; values are stored as text.
type SaveSettingsRequest struct {
	Body struct {
		Settings map[string]any `json:"settings"`
	}
}

type AnalyticsRequest struct {
	Days int `doc:"Length of the daily series, clamped to 1..90" query:"days"`
}

type StatsBody struct {
	TotalDownloads   int64 `json:"totalDownloads"`
	TodayDownloads   int64 `json:"todayDownloads"`
	WeeklyDownloads  int64 `json:"weeklyDownloads"`
	MonthlyDownloads int64 `json:"monthlyDownloads"`
	TotalImpressions int64 `json:"totalImpressions"`
}

type DailyStatBody struct {
	Date      string `example:"2024-05-20" json:"date"`
	Downloads int64  `json:"downloads"`
}

type TopRingtoneBody struct {
	ID            int64  `json:"id"`
	NumericID     string `json:"numericId"`
	Name          string `json:"name"`
	DownloadCount int64  `json:"downloadCount"`
}

type TopAdBody struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Impressions int64  `json:"impressions"`
	Placement   string `json:"placement"`
}

type AnalyticsResponse struct {
	Body struct {
		Stats        StatsBody         `json:"stats"`
		DailyStats   []DailyStatBody   `json:"dailyStats"`
		TopRingtones []TopRingtoneBody `json:"topRingtones"`
		TopAds       []TopAdBody       `json:"topAds"`
	}
}
