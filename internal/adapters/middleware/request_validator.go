package middleware

import (
	"errors"
	"net/http"

	"github.com/architeacher/svc-broker-link/internal/domain"
	"github.com/architeacher/svc-broker-link/internal/infrastructure"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/gorillamux"
)

type (
	// RequestValidationErrHandlerFunc writes the response for a request the
	// OpenAPI document rejects.
	RequestValidationErrHandlerFunc func(w http.ResponseWriter, message string, statusCode int)

	RequestValidatorOptions struct {
		Options      openapi3filter.Options
		ErrorHandler RequestValidationErrHandlerFunc
	}
)

// OapiRequestValidatorWithOptions validates requests for documented routes
// against swagger. Routes the document does not describe, such as /metrics,
// pass through untouched.
func OapiRequestValidatorWithOptions(
	logger infrastructure.Logger,
	swagger *openapi3.T,
	options *RequestValidatorOptions,
) (func(http.Handler) http.Handler, error) {
	router, err := gorillamux.NewRouter(swagger)
	if err != nil {
		return nil, err
	}

	if options == nil {
		options = &RequestValidatorOptions{}
	}

	errHandler := options.ErrorHandler
	if errHandler == nil {
		errHandler = RequestValidationErrHandler
	}

	validatorLogger := logger.WithComponent("request_validator")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route, pathParams, err := router.FindRoute(r)
			if err != nil {
				if errors.Is(err, routers.ErrPathNotFound) || errors.Is(err, routers.ErrMethodNotAllowed) {
					next.ServeHTTP(w, r)

					return
				}

				errHandler(w, err.Error(), http.StatusBadRequest)

				return
			}

			input := &openapi3filter.RequestValidationInput{
				Request:    r,
				PathParams: pathParams,
				Route:      route,
				Options:    &options.Options,
			}

			if err := openapi3filter.ValidateRequest(r.Context(), input); err != nil {
				statusCode := http.StatusBadRequest

				var securityErr *openapi3filter.SecurityRequirementsError
				if errors.As(err, &securityErr) {
					statusCode = http.StatusUnauthorized
				}

				validatorLogger.Debug().
					Err(err).
					Str("path", r.URL.Path).
					Int("status_code", statusCode).
					Msg("request rejected by OpenAPI validation")

				errHandler(w, err.Error(), statusCode)

				return
			}

			next.ServeHTTP(w, r)
		})
	}, nil
}

// RequestValidationErrHandler renders validation failures as JSON domain errors.
func RequestValidationErrHandler(w http.ResponseWriter, message string, statusCode int) {
	if statusCode == http.StatusUnauthorized {
		writeDomainError(w, domain.NewUnauthorizedError(message))

		return
	}

	writeDomainError(w, domain.NewInvalidRequestError(message))
}
