package handlers

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	appErrors "github.com/jobhive/jobhive/pkg/errors"
	"github.com/jobhive/jobhive/pkg/response"
	appValidator "github.com/jobhive/jobhive/pkg/validator"
)

const (
	defaultPerPage = 20
	maxPerPage     = 100
)

// bindAndValidate binds the JSON payload into dest and runs struct validation rules.
// When validation fails, an error response is automatically written and false is returned.
func bindAndValidate[T any](c *gin.Context, dest *T) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.NewBadRequest("invalid JSON payload"))
		return false
	}

	if err := appValidator.ValidateStruct(dest); err != nil {
		response.Error(c, appErrors.NewBadRequest(formatValidationError(err)))
		return false
	}

	return true
}

func formatValidationError(err error) string {
	var ve appValidator.ValidationErrors
	if !errors.As(err, &ve) || len(ve) == 0 {
		return "invalid request payload"
	}

	messages := make([]string, 0, len(ve))
	for _, failure := range ve {
		field := prettifyFieldName(failure.Field)
		switch failure.Tag {
		case "required":
			messages = append(messages, fmt.Sprintf("%s is required", field))
		case "email":
			messages = append(messages, fmt.Sprintf("%s must be a valid email address", field))
		case "min":
			messages = append(messages, fmt.Sprintf("%s must be at least %s", field, failure.Param))
		case "max":
			messages = append(messages, fmt.Sprintf("%s must be at most %s", field, failure.Param))
		case "oneof":
			messages = append(messages, fmt.Sprintf("%s must be one of: %s", field, failure.Param))
		case "uuid", "uuid4":
			messages = append(messages, fmt.Sprintf("%s must be a valid UUID", field))
		case "permcode":
			messages = append(messages, fmt.Sprintf("%s may only contain letters, digits, '_', '.', ':' and '-'", field))
		default:
			if failure.Param != "" {
				messages = append(messages, fmt.Sprintf("%s failed validation: %s=%s", field, failure.Tag, failure.Param))
			} else {
				messages = append(messages, fmt.Sprintf("%s failed validation: %s", field, failure.Tag))
			}
		}
	}
	return strings.Join(messages, "; ")
}

func prettifyFieldName(name string) string {
	if name == "" {
		return "field"
	}
	name = strings.ReplaceAll(name, "_", " ")
	return strings.ToLower(name)
}

func parseIntQuery(c *gin.Context, key string, fallback int) int {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func paginationParams(c *gin.Context) (int, int) {
	page := parseIntQuery(c, "page", 1)
	if page < 1 {
		page = 1
	}
	perPage := parseIntQuery(c, "per_page", defaultPerPage)
	if perPage < 1 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}
	return page, perPage
}
