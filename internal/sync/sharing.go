package sync

import (
	"context"

	"calendar-sync/internal/common/errors"
	"calendar-sync/internal/common/logging"
	"calendar-sync/internal/models"
)

// Rights is a user's effective permission set on one calendar, resolved
// from ownership and the calendar's sharing entries.
type Rights struct {
	Owner        bool
	Read         bool
	EditHolidays bool
	Share        bool
}

// ResolveRights computes the effective rights of a user on a calendar.
// The owner holds everything. An accepted sharing entry grants read, plus
// holiday editing and further sharing as flagged. A pending entry grants
// nothing until accepted.
func ResolveRights(cal *models.Calendar, userID string) Rights {
	if cal == nil || userID == "" {
		return Rights{}
	}
	if cal.OwnerID == userID {
		return Rights{Owner: true, Read: true, EditHolidays: true, Share: true}
	}

	info, ok := cal.SharedWith[userID]
	if !ok || !info.IsAccepted() {
		return Rights{}
	}
	return Rights{
		Read:         true,
		EditHolidays: info.CanEdit,
		Share:        info.CanShare,
	}
}

// Invite writes a pending sharing entry for the target. Only the owner or
// an accepted share-capable user may invite. Re-inviting a user who
// already has an entry is rejected; revoke first.
func (e *Engine) Invite(ctx context.Context, calendarID, actorID, targetID string, canEdit, canShare bool) (*models.SharedUserInfo, error) {
	if calendarID == "" || actorID == "" || targetID == "" {
		return nil, errors.ValidationError("calendar ID, actor ID and target ID are required")
	}

	cal, err := e.remote.GetCalendar(ctx, calendarID)
	if err != nil {
		return nil, err
	}

	if !ResolveRights(cal, actorID).Share {
		return nil, errors.PermissionError("actor may not share this calendar").
			WithContext("calendar_id", calendarID).
			WithContext("actor_id", actorID)
	}
	if cal.OwnerID == targetID {
		return nil, errors.ValidationError("cannot invite the calendar owner")
	}
	if _, exists := cal.SharedWith[targetID]; exists {
		return nil, errors.ValidationError("user already has a sharing entry").
			WithContext("target_id", targetID)
	}

	info := models.SharedUserInfo{
		Status:    models.ShareStatusPending,
		CanEdit:   canEdit,
		CanShare:  canShare,
		InvitedAt: e.now(),
	}
	if err := e.remote.PutSharedUser(ctx, calendarID, targetID, info); err != nil {
		return nil, err
	}

	e.refreshCachedCalendar(ctx, calendarID)
	e.logger.Info("user invited",
		logging.String("calendar_id", calendarID),
		logging.String("target_id", targetID))
	return &info, nil
}

// Accept transitions the actor's own pending entry to accepted. Accepting
// an already-accepted entry is a no-op that returns the entry unchanged;
// the status never reverts.
func (e *Engine) Accept(ctx context.Context, calendarID, actorID string) (*models.SharedUserInfo, error) {
	if calendarID == "" || actorID == "" {
		return nil, errors.ValidationError("calendar ID and actor ID are required")
	}

	info, err := e.remote.GetSharedUser(ctx, calendarID, actorID)
	if err != nil {
		if errors.IsType(err, errors.ErrTypeNotFound) {
			return nil, errors.PermissionError("user was not invited to this calendar").
				WithContext("calendar_id", calendarID).
				WithContext("actor_id", actorID)
		}
		return nil, err
	}

	if info.IsAccepted() {
		return info, nil
	}

	acceptedAt := e.now()
	info.Status = models.ShareStatusAccepted
	info.AcceptedAt = &acceptedAt

	if err := e.remote.PutSharedUser(ctx, calendarID, actorID, *info); err != nil {
		return nil, err
	}

	e.refreshCachedCalendar(ctx, calendarID)
	e.logger.Info("invite accepted",
		logging.String("calendar_id", calendarID),
		logging.String("actor_id", actorID))
	return info, nil
}

// Revoke removes the target's sharing entry. The owner or a share-capable
// accepted user may revoke. Holidays are untouched; only access goes away.
func (e *Engine) Revoke(ctx context.Context, calendarID, actorID, targetID string) error {
	if calendarID == "" || actorID == "" || targetID == "" {
		return errors.ValidationError("calendar ID, actor ID and target ID are required")
	}

	cal, err := e.remote.GetCalendar(ctx, calendarID)
	if err != nil {
		return err
	}

	if !ResolveRights(cal, actorID).Share {
		return errors.PermissionError("actor may not revoke sharing on this calendar").
			WithContext("calendar_id", calendarID).
			WithContext("actor_id", actorID)
	}

	if err := e.remote.RemoveSharedUser(ctx, calendarID, targetID); err != nil {
		return err
	}

	e.refreshCachedCalendar(ctx, calendarID)
	e.logger.Info("sharing revoked",
		logging.String("calendar_id", calendarID),
		logging.String("target_id", targetID))
	return nil
}

// requireEditRights gates holiday mutations on the actor's rights.
func (e *Engine) requireEditRights(ctx context.Context, actorID, calendarID string) error {
	if calendarID == "" {
		return errors.ValidationError("calendar ID is required")
	}
	if actorID == "" {
		return errors.ValidationError("actor ID is required")
	}

	cal, err := e.remote.GetCalendar(ctx, calendarID)
	if err != nil {
		return err
	}

	if !ResolveRights(cal, actorID).EditHolidays {
		return errors.PermissionError("actor may not edit holidays on this calendar").
			WithContext("calendar_id", calendarID).
			WithContext("actor_id", actorID)
	}
	return nil
}

// refreshCachedCalendar re-reads the calendar after a sharing mutation so
// the cached snapshot reflects the new entries. Failures are logged only.
func (e *Engine) refreshCachedCalendar(ctx context.Context, calendarID string) {
	cal, err := e.remote.GetCalendar(ctx, calendarID)
	if err != nil {
		e.logger.Warn("failed to refresh cached calendar",
			logging.String("calendar_id", calendarID), logging.Err(err))
		return
	}
	e.cacheCalendar(cal)
}
