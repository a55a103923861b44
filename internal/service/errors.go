package service

import (
	"errors"
	"fmt"

	"github.com/ignatzorin/freelance-market/internal/pkg/apperror"
	"github.com/ignatzorin/freelance-market/internal/repository"
)

var (
	errNotOrderOwner   = apperror.New(apperror.ErrCodeForbidden, "действие доступно только заказчику")
	errNotParticipant  = apperror.New(apperror.ErrCodeForbidden, "действие доступно только участникам заказа")
	errAdminOnly       = apperror.New(apperror.ErrCodeForbidden, "действие доступно только администратору")
	errFreelancerOnly  = apperror.New(apperror.ErrCodeForbidden, "откликаться могут только фрилансеры")
	errOwnOrderBid     = apperror.New(apperror.ErrCodeForbidden, "нельзя откликнуться на собственный заказ")
	errNotAssignee     = apperror.New(apperror.ErrCodeForbidden, "сдать работу может только исполнитель заказа")
	errSelfModeration  = apperror.New(apperror.ErrCodeForbidden, "нельзя применить действие к своей учётной записи")
	errOrderNotOpen    = apperror.New(apperror.ErrCodeInvalidState, "заказ не принимает отклики")
	errNoAssignee      = apperror.New(apperror.ErrCodeInvalidState, "у заказа нет исполнителя")
	errBidExists       = apperror.New(apperror.ErrCodeConflict, "вы уже откликнулись на этот заказ")
	errBidDecided      = apperror.New(apperror.ErrCodeConflict, "отклик уже рассмотрен")
	errOrderTaken      = apperror.New(apperror.ErrCodeConflict, "заказ больше не принимает исполнителей")
	errDisputeExists   = apperror.New(apperror.ErrCodeConflict, "по заказу уже открыт спор")
	errReviewExists    = apperror.New(apperror.ErrCodeConflict, "отзыв по заказу уже оставлен")
	errEmailTaken      = apperror.New(apperror.ErrCodeConflict, "email уже зарегистрирован")
	errNegotiableNoBid = apperror.New(apperror.ErrCodeValidation, "для заказа без бюджета отклик должен содержать сумму")
)

// mapRepoError переводит ошибки хранилища в таксономию приложения.
// notFound подставляется вместо repository.ErrNotFound.
func mapRepoError(op string, err error, notFound *apperror.AppError) error {
	switch {
	case err == nil:
		return nil
	case errors.As(err, new(*apperror.AppError)):
		return err
	case errors.Is(err, repository.ErrNotFound) && notFound != nil:
		return notFound
	case errors.Is(err, repository.ErrInsufficientFunds):
		return apperror.ErrInsufficientFunds
	case errors.Is(err, repository.ErrInvalidInput):
		return apperror.Wrap(err, apperror.ErrCodeValidation, "некорректные данные")
	}
	return apperror.Wrap(fmt.Errorf("%s: %w", op, err), apperror.ErrCodeInternal, "внутренняя ошибка")
}
