package models

import (
	"time"

	"github.com/google/uuid"
)

// Category определяет тип бронируемого ресурса и стратегию проверки
type Category string

// Constants для категорий ресурсов
const (
	CategorySpace     Category = "space"
	CategoryEquipment Category = "equipment"
	CategoryEducation Category = "education"
)

// Status представляет статус бронирования
type Status string

// Constants для статусов бронирования
const (
	StatusRequest Status = "REQUEST"
	StatusApprove Status = "APPROVE"
	StatusCancel  Status = "CANCEL"
	StatusDone    Status = "DONE"
)

// Reservation представляет бронирование ресурса
type Reservation struct {
	ReservationID    string    `json:"reservation_id" db:"reservation_id"`
	ItemID           int64     `json:"item_id" db:"item_id"`
	CategoryID       Category  `json:"category_id" db:"category_id"`
	LocationID       int64     `json:"location_id" db:"location_id"`
	Quantity         int       `json:"quantity" db:"quantity"`
	Purpose          string    `json:"purpose" db:"purpose"`
	AttachmentCode   *string   `json:"attachment_code,omitempty" db:"attachment_code"`
	StartDate        time.Time `json:"start_date" db:"start_date"`
	EndDate          time.Time `json:"end_date" db:"end_date"`
	Status           Status    `json:"status" db:"status"`
	CancelReason     *string   `json:"cancel_reason,omitempty" db:"cancel_reason"`
	InventoryHeld    bool      `json:"-" db:"inventory_held"`
	RequesterID      string    `json:"requester_id" db:"requester_id"`
	RequesterContact string    `json:"requester_contact" db:"requester_contact"`
	RequesterEmail   string    `json:"requester_email" db:"requester_email"`

	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	CreatedBy string     `json:"created_by" db:"created_by"`
	UpdatedAt *time.Time `json:"updated_at,omitempty" db:"updated_at"`
	UpdatedBy *string    `json:"updated_by,omitempty" db:"updated_by"`
}

// NewReservation создает бронирование со сгенерированным идентификатором.
// Идентификатор назначается до любой записи в хранилище, чтобы его можно было
// сразу использовать в сообщении о привязке вложений.
func NewReservation(itemID int64, category Category, requesterID string, now time.Time) *Reservation {
	return &Reservation{
		ReservationID: uuid.NewString(),
		ItemID:        itemID,
		CategoryID:    category,
		Status:        StatusRequest,
		RequesterID:   requesterID,
		CreatedAt:     now,
		CreatedBy:     requesterID,
	}
}

// Release возвращает копию бронирования с инвертированным количеством.
// Используется для освобождения ранее удержанной емкости тем же путем, что и удержание.
func (r Reservation) Release() Reservation {
	r.Quantity = -r.Quantity
	return r
}

// IsOwnedBy проверяет, является ли пользователь автором бронирования
func (r *Reservation) IsOwnedBy(userID string) bool {
	return userID != "" && r.RequesterID == userID
}

// IsActive возвращает true для бронирований, занимающих емкость
func (r *Reservation) IsActive() bool {
	return r.Status != StatusCancel
}

// ItemSnapshot представляет данные бронируемого ресурса из Item Catalog Service
type ItemSnapshot struct {
	ItemID             int64      `json:"reserve_item_id"`
	ItemName           string     `json:"reserve_item_name"`
	CategoryID         Category   `json:"category_id"`
	CategoryName       string     `json:"category_name,omitempty"`
	LocationID         int64      `json:"location_id"`
	LocationName       string     `json:"location_name,omitempty"`
	TotalQty           int        `json:"total_qty"`
	InventoryQty       int        `json:"inventory_qty"`
	OperationStartDate *time.Time `json:"operation_start_date,omitempty"`
	OperationEndDate   *time.Time `json:"operation_end_date,omitempty"`
	RequestStartDate   *time.Time `json:"request_start_date,omitempty"`
	RequestEndDate     *time.Time `json:"request_end_date,omitempty"`
	IsPeriod           bool       `json:"is_period"`
	PeriodMaxCount     int        `json:"period_max_count"`
	ReserveMeansID     string     `json:"reserve_means_id"`
	Purpose            string     `json:"purpose,omitempty"`
	Address            string     `json:"address,omitempty"`
	Target             string     `json:"target,omitempty"`
	ContactNo          string     `json:"contact_no,omitempty"`
	ManagerDept        string     `json:"manager_dept,omitempty"`
	ManagerName        string     `json:"manager_name,omitempty"`
	ManagerContactNo   string     `json:"manager_contact_no,omitempty"`
}

// ReserveMeansRealtime означает, что бронирование ограничено окном приема заявок
const ReserveMeansRealtime = "realtime"

// EffectiveWindow возвращает окно, в которое должно попадать бронирование
func (i *ItemSnapshot) EffectiveWindow() (start, end *time.Time) {
	if i.ReserveMeansID == ReserveMeansRealtime {
		return i.RequestStartDate, i.RequestEndDate
	}
	return i.OperationStartDate, i.OperationEndDate
}

// UserProfile представляет данные пользователя из User Service
type UserProfile struct {
	UserID    string `json:"user_id"`
	UserName  string `json:"user_name"`
	Email     string `json:"email"`
	ContactNo string `json:"contact_no"`
}

// Principal представляет аутентифицированного пользователя, выполняющего операцию
type Principal struct {
	UserID  string
	IsAdmin bool
}

// RoleAdmin - роль администратора в JWT
const RoleAdmin = "ROLE_ADMIN"

// AttachmentMessage сообщение о привязке вложений к сущности
type AttachmentMessage struct {
	AttachmentCode string `json:"attachment_code"`
	EntityName     string `json:"entity_name"`
	EntityID       string `json:"entity_id"`
}

// AttachmentEntityName имя сущности для Attachment Service
const AttachmentEntityName = "reservation"

// ReservationFilter представляет фильтры списка бронирований
type ReservationFilter struct {
	LocationID *int64
	CategoryID *Category
	Keyword    string
	Limit      int
	Offset     int
}

// ReservationDetail бронирование со связанными данными
type ReservationDetail struct {
	Reservation
	Item      *ItemSnapshot `json:"item,omitempty"`
	Requester *UserProfile  `json:"requester,omitempty"`
}

// InventoryAvailability остаток емкости ресурса на период
type InventoryAvailability struct {
	ItemID    int64     `json:"item_id"`
	Category  Category  `json:"category_id"`
	TotalQty  int       `json:"total_qty"`
	Remaining int       `json:"remaining_qty"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
}

// PendingRelease освобождение остатка, ожидающее повторной попытки
type PendingRelease struct {
	ReservationID string    `json:"reservation_id"`
	ItemID        int64     `json:"item_id"`
	Quantity      int       `json:"quantity"`
	Attempts      int       `json:"attempts"`
	QueuedAt      time.Time `json:"queued_at"`
}
