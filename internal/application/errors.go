package application

import (
	"errors"

	"tmtresearch-service/internal/domain"
)

var ErrNotFound = errors.New("not found")
var ErrBadRequest = errors.New("bad request")
var ErrRefreshInProgress = errors.New("refresh already in progress")
var ErrNoProviders = errors.New("no providers configured")

func isAuthErr(err error) bool { return errors.Is(err, domain.ErrAuth) }
