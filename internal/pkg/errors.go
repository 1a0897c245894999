package pkg

import (
	"errors"
	"net/http"
)

// CodeError 调用方可见的错误，带稳定的错误码和HTTP状态
type CodeError struct {
	Status int
	Code   string
	Msg    string
}

func (e *CodeError) Error() string {
	return e.Msg
}

func NewCodeError(status int, code, msg string) *CodeError {
	return &CodeError{Status: status, Code: code, Msg: msg}
}

// 好友关系
var (
	ErrSameUser             = NewCodeError(http.StatusBadRequest, "REQUEST__SAME_USER", "cannot send request to yourself")
	ErrAlreadyRequested     = NewCodeError(http.StatusConflict, "REQUEST__SEND_ERROR", "already sent request")
	ErrAlreadyReceived      = NewCodeError(http.StatusConflict, "REQUEST__RECEIVE_ERROR", "already received request")
	ErrAlreadyFriends       = NewCodeError(http.StatusConflict, "REQUEST__FRIENDS_ERROR", "already friends")
	ErrRelationshipNotFound = NewCodeError(http.StatusNotFound, "FRIENDSHIP__NOT_FOUND", "friendship not found")
	ErrUsersNotFriends      = NewCodeError(http.StatusForbidden, "USERS__NOT_FRIENDS", "users are not friends")
	ErrNotImplemented       = NewCodeError(http.StatusNotImplemented, "NOT_IMPLEMENTED", "not implemented")
)

// 位置与聊天
var (
	ErrLocationNotFound   = NewCodeError(http.StatusNotFound, "LOCATION__NOT_FOUND", "location not found")
	ErrValidation         = NewCodeError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "invalid payload")
	ErrRateLimited        = NewCodeError(http.StatusTooManyRequests, "RATE_LIMITED", "too many requests")
	ErrMessageToSelf      = NewCodeError(http.StatusBadRequest, "MESSAGE_TO_SELF", "cannot send message to self")
	ErrMessageToNonFriend = NewCodeError(http.StatusBadRequest, "MESSAGE_TO_NON_FRIEND", "cannot send message to non friend")
)

// 用户与鉴权
var (
	ErrUserNotFound    = NewCodeError(http.StatusNotFound, "USER__NOT_FOUND", "user not found")
	ErrDuplicateUser   = NewCodeError(http.StatusConflict, "USER__DUPLICATE", "username or email already exists")
	ErrInvalidPassword = NewCodeError(http.StatusUnauthorized, "USER__INVALID_PASSWORD", "invalid password")
	ErrUnauthorized    = NewCodeError(http.StatusUnauthorized, "TOKEN__MISSING", "unauthorized")
	ErrTokenExpired    = NewCodeError(http.StatusUnauthorized, "TOKEN__EXPIRE_ERROR", "token expired")
	ErrTokenInvalid    = NewCodeError(http.StatusUnauthorized, "TOKEN__DECODE_ERROR", "token invalid")
	ErrRefreshExpired  = NewCodeError(http.StatusUnauthorized, "TOKEN__REFRESH_EXPIRE_ERROR", "refresh expired")
	ErrRefreshInvalid  = NewCodeError(http.StatusUnauthorized, "TOKEN__REFRESH_DECODE_ERROR", "refresh invalid")
	ErrSessionReplaced = NewCodeError(http.StatusUnauthorized, "TOKEN__SESSION_REPLACED", "account has been logged in elsewhere")
	ErrForbidden       = NewCodeError(http.StatusForbidden, "FORBIDDEN", "admin access required")
)

// 存储层
var (
	ErrConstraintViolation = NewCodeError(http.StatusConflict, "DATABASE__CONSTRAINT", "constraint violation")
	ErrDatabase            = NewCodeError(http.StatusInternalServerError, "DATABASE__ERROR", "database error")
	ErrInternal            = NewCodeError(http.StatusInternalServerError, "INTERNAL", "internal server error")
	ErrStorageUnavailable  = NewCodeError(http.StatusServiceUnavailable, "STORAGE__UNAVAILABLE", "object storage not configured")
)

// AsCodeError 取出错误链上的CodeError，没有则归为 ErrInternal
func AsCodeError(err error) *CodeError {
	var ce *CodeError
	if errors.As(err, &ce) {
		return ce
	}
	return ErrInternal
}

type ErrorResponse struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}

// ToResponse 5xx 只返回通用信息，不把底层错误暴露给调用方
func ToResponse(err error) (int, ErrorResponse) {
	ce := AsCodeError(err)
	msg := ce.Msg
	if ce.Status < http.StatusInternalServerError && err != nil {
		msg = err.Error()
	}
	return ce.Status, ErrorResponse{Code: ce.Code, Msg: msg}
}
