package handler

import (
	"time"

	"schoolpay/internal/school"
	"schoolpay/pkg/money"
)

type CreateSchoolRequest struct {
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`
	Logo    string `json:"logo,omitempty"`
}

type UpdateSchoolRequest struct {
	Name        *string             `json:"name,omitempty"`
	Address     *string             `json:"address,omitempty"`
	Phone       *string             `json:"phone,omitempty"`
	Email       *string             `json:"email,omitempty"`
	Logo        *string             `json:"logo,omitempty"`
	Tag         *string             `json:"tag,omitempty"`
	Header      *string             `json:"header,omitempty"`
	Bio         *string             `json:"bio,omitempty"`
	Color       *string             `json:"color,omitempty"`
	Social      *school.SocialLinks `json:"social,omitempty"`
	FeeDeadline *time.Time          `json:"fee_deadline,omitempty"`
	Installment *bool               `json:"installment,omitempty"`
	Sessions    []school.Session    `json:"sessions,omitempty"`
}

type feeItem struct {
	Name       string       `json:"name"`
	Compulsory bool         `json:"compulsory"`
	Amount     money.Amount `json:"amount"`
	Session    string       `json:"session"`
	Term       int          `json:"term"`
}

type SetFeesRequest struct {
	Items []feeItem `json:"items"`
}

func (r SetFeesRequest) toFeeItems() []school.FeeItem {
	items := make([]school.FeeItem, 0, len(r.Items))
	for _, f := range r.Items {
		items = append(items, school.FeeItem{
			Name:       f.Name,
			Compulsory: f.Compulsory,
			Amount:     f.Amount,
			Session:    f.Session,
			Term:       f.Term,
		})
	}
	return items
}

type SchoolResponse struct {
	ID           string             `json:"id"`
	Name         string             `json:"name"`
	Slug         string             `json:"slug,omitempty"`
	OwnerID      string             `json:"owner_id"`
	Address      string             `json:"address,omitempty"`
	Phone        string             `json:"phone,omitempty"`
	Email        string             `json:"email,omitempty"`
	Logo         string             `json:"logo,omitempty"`
	Tag          string             `json:"tag,omitempty"`
	Header       string             `json:"header,omitempty"`
	Bio          string             `json:"bio,omitempty"`
	Color        string             `json:"color,omitempty"`
	Social       school.SocialLinks `json:"social"`
	FeeItems     []school.FeeItem   `json:"fee_items,omitempty"`
	Sessions     []school.Session   `json:"sessions,omitempty"`
	FeeDeadline  *time.Time         `json:"fee_deadline,omitempty"`
	Installment  bool               `json:"installment"`
	CustomFields []string           `json:"custom_fields,omitempty"`
	CreatedAt    time.Time          `json:"created_at"`
}

func toSchoolResponse(sc *school.School) SchoolResponse {
	return SchoolResponse{
		ID:           sc.ID.String(),
		Name:         sc.Name,
		Slug:         sc.Slug,
		OwnerID:      sc.OwnerID.String(),
		Address:      sc.Address,
		Phone:        sc.Phone,
		Email:        sc.Email,
		Logo:         sc.Logo,
		Tag:          sc.Tag,
		Header:       sc.Header,
		Bio:          sc.Bio,
		Color:        sc.Color,
		Social:       sc.Social,
		FeeItems:     sc.FeeItems,
		Sessions:     sc.Sessions,
		FeeDeadline:  sc.FeeDeadline,
		Installment:  sc.Installment,
		CustomFields: sc.CustomFields,
		CreatedAt:    sc.CreatedAt,
	}
}
