package transfer

type MetaAccountsResponse struct {
	Data []MetaPage `json:"data"`
}

type MetaPage struct {
	ID                       string         `json:"id"`
	Name                     string         `json:"name"`
	AccessToken              string         `json:"access_token"`
	InstagramBusinessAccount *MetaObjectRef `json:"instagram_business_account,omitempty"`
}

type MetaObjectRef struct {
	ID string `json:"id"`
}

type MetaPhotoResponse struct {
	ID     string `json:"id"`
	PostID string `json:"post_id"`
}

type MetaPermalinkResponse struct {
	ID           string `json:"id"`
	Permalink    string `json:"permalink"`
	PermalinkURL string `json:"permalink_url"`
}

type MetaSuccessResponse struct {
	Success bool `json:"success"`
}

type MetaCommentsResponse struct {
	Data []MetaComment `json:"data"`
}

// MetaComment covers both comment shapes: Facebook sends message/created_time/from,
// Instagram sends text/timestamp/username.
type MetaComment struct {
	ID          string    `json:"id"`
	Message     string    `json:"message"`
	CreatedTime string    `json:"created_time"`
	From        *MetaFrom `json:"from,omitempty"`
	Text        string    `json:"text"`
	Timestamp   string    `json:"timestamp"`
	Username    string    `json:"username"`
}

type MetaFrom struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type MetaLikesResponse struct {
	Summary *MetaLikesSummary `json:"summary"`
}

type MetaLikesSummary struct {
	TotalCount int  `json:"total_count"`
	HasLiked   bool `json:"has_liked"`
}

type MetaErrorResponse struct {
	Error struct {
		Message        string `json:"message"`
		Type           string `json:"type"`
		Code           int    `json:"code"`
		ErrorSubcode   int    `json:"error_subcode"`
		IsTransient    bool   `json:"is_transient"`
		ErrorUserTitle string `json:"error_user_title"`
		ErrorUserMsg   string `json:"error_user_msg"`
		FbtraceID      string `json:"fbtrace_id"`
	} `json:"error"`
}
