package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/maikekai/surf-house-backend/internal/database"
	"github.com/maikekai/surf-house-backend/internal/models"
	"github.com/sirupsen/logrus"
)

// InventoryAdminService backs the staff surface for blocks, season rate
// cards, and the season calendar.
type InventoryAdminService struct {
	blockRepo   *database.BlockRepository
	pricingRepo *database.PricingRepository
	roomRepo    *database.RoomRepository
	logger      *logrus.Logger
}

// NewInventoryAdminService creates a new InventoryAdminService.
func NewInventoryAdminService(
	blockRepo *database.BlockRepository,
	pricingRepo *database.PricingRepository,
	roomRepo *database.RoomRepository,
	logger *logrus.Logger,
) *InventoryAdminService {
	return &InventoryAdminService{
		blockRepo:   blockRepo,
		pricingRepo: pricingRepo,
		roomRepo:    roomRepo,
		logger:      logger,
	}
}

// CreateBlockRequest is the admin payload for taking inventory off sale.
type CreateBlockRequest struct {
	RoomID    uuid.UUID          `json:"room_id" binding:"required"`
	BedID     *uuid.UUID         `json:"bed_id,omitempty"`
	StartDate string             `json:"start_date" binding:"required"`
	EndDate   string             `json:"end_date" binding:"required"`
	Reason    models.BlockReason `json:"reason" binding:"required"`
	Notes     *string            `json:"notes,omitempty"`
}

// CreateBlock validates and stores an administrative block.
func (s *InventoryAdminService) CreateBlock(ctx context.Context, req *CreateBlockRequest, createdBy *uuid.UUID) (*models.RoomBlock, error) {
	start, err := models.ParseDate(req.StartDate)
	if err != nil {
		return nil, NewValidationError("start_date", err.Error())
	}
	end, err := models.ParseDate(req.EndDate)
	if err != nil {
		return nil, NewValidationError("end_date", err.Error())
	}

	if _, err := s.roomRepo.GetByID(ctx, req.RoomID); err != nil {
		return nil, NewNotFoundError("room", req.RoomID.String())
	}

	block := &models.RoomBlock{
		RoomID:    req.RoomID,
		BedID:     req.BedID,
		StartDate: start,
		EndDate:   end,
		Reason:    req.Reason,
		Notes:     req.Notes,
		CreatedBy: createdBy,
	}
	if err := block.Validate(); err != nil {
		return nil, NewValidationError("block", err.Error())
	}

	if err := s.blockRepo.Create(ctx, block); err != nil {
		return nil, NewDataAccessError("create block", err)
	}

	s.logger.WithFields(logrus.Fields{
		"block_id": block.ID,
		"room_id":  block.RoomID,
		"reason":   block.Reason,
	}).Info("Room block created")
	return block, nil
}

// DeleteBlock removes a block, putting the inventory back on sale.
func (s *InventoryAdminService) DeleteBlock(ctx context.Context, id uuid.UUID) error {
	n, err := s.blockRepo.Delete(ctx, id)
	if err != nil {
		return NewDataAccessError("delete block", err)
	}
	if n == 0 {
		return NewNotFoundError("block", id.String())
	}
	s.logger.WithField("block_id", id).Info("Room block removed")
	return nil
}

// ListBlocksForRoom returns a room's blocks.
func (s *InventoryAdminService) ListBlocksForRoom(ctx context.Context, roomID uuid.UUID) ([]models.RoomBlock, error) {
	blocks, err := s.blockRepo.ListByRoom(ctx, roomID)
	if err != nil {
		return nil, NewDataAccessError("list blocks", err)
	}
	return blocks, nil
}

// UpsertSeasonPricingRequest is the admin payload for a rate card.
type UpsertSeasonPricingRequest struct {
	RoomID          uuid.UUID     `json:"room_id" binding:"required"`
	Season          models.Season `json:"season" binding:"required"`
	BasePrice       float64       `json:"base_price" binding:"required,gt=0"`
	RackRate        float64       `json:"rack_rate"`
	CompetitiveRate float64       `json:"competitive_rate"`
	LastMinuteRate  float64       `json:"last_minute_rate"`
}

// UpsertSeasonPricing creates or replaces a (room, season) rate card.
func (s *InventoryAdminService) UpsertSeasonPricing(ctx context.Context, req *UpsertSeasonPricingRequest) (*models.SeasonPricing, error) {
	switch req.Season {
	case models.SeasonHigh, models.SeasonMid, models.SeasonLow:
	default:
		return nil, NewValidationError("season", "must be high, mid, or low")
	}
	if _, err := s.roomRepo.GetByID(ctx, req.RoomID); err != nil {
		return nil, NewNotFoundError("room", req.RoomID.String())
	}

	card := &models.SeasonPricing{
		RoomID:          req.RoomID,
		Season:          req.Season,
		BasePrice:       req.BasePrice,
		RackRate:        req.RackRate,
		CompetitiveRate: req.CompetitiveRate,
		LastMinuteRate:  req.LastMinuteRate,
	}
	if err := s.pricingRepo.UpsertSeasonPricing(ctx, card); err != nil {
		return nil, NewDataAccessError("upsert season pricing", err)
	}

	s.logger.WithFields(logrus.Fields{
		"room_id": card.RoomID,
		"season":  card.Season,
	}).Info("Season rate card saved")
	return card, nil
}

// ListSeasonPricing returns a room's rate cards.
func (s *InventoryAdminService) ListSeasonPricing(ctx context.Context, roomID uuid.UUID) ([]models.SeasonPricing, error) {
	cards, err := s.pricingRepo.ListSeasonPricingByRoom(ctx, roomID)
	if err != nil {
		return nil, NewDataAccessError("list season pricing", err)
	}
	return cards, nil
}

// CreateSeasonDateRequest is the admin payload for one calendar range.
type CreateSeasonDateRequest struct {
	Season    models.Season `json:"season" binding:"required"`
	StartDate string        `json:"start_date" binding:"required"`
	EndDate   string        `json:"end_date" binding:"required"`
}

// CreateSeasonDate adds a configured season calendar range.
func (s *InventoryAdminService) CreateSeasonDate(ctx context.Context, req *CreateSeasonDateRequest) (*models.SeasonDate, error) {
	switch req.Season {
	case models.SeasonHigh, models.SeasonMid, models.SeasonLow:
	default:
		return nil, NewValidationError("season", "must be high, mid, or low")
	}
	start, err := models.ParseDate(req.StartDate)
	if err != nil {
		return nil, NewValidationError("start_date", err.Error())
	}
	end, err := models.ParseDate(req.EndDate)
	if err != nil {
		return nil, NewValidationError("end_date", err.Error())
	}
	if end.Before(start) {
		return nil, NewValidationError("end_date", "must not be before start_date")
	}

	sd := &models.SeasonDate{
		Season:    req.Season,
		StartDate: start,
		EndDate:   end,
		IsActive:  true,
		CreatedAt: time.Now(),
	}
	if err := s.pricingRepo.CreateSeasonDate(ctx, sd); err != nil {
		return nil, NewDataAccessError("create season date", err)
	}
	return sd, nil
}

// ListSeasonDates returns the active configured calendar.
func (s *InventoryAdminService) ListSeasonDates(ctx context.Context) ([]models.SeasonDate, error) {
	dates, err := s.pricingRepo.ListActiveSeasonDates(ctx)
	if err != nil {
		return nil, NewDataAccessError("list season dates", err)
	}
	return dates, nil
}
