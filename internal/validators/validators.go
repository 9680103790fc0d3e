// Package validators checks that an asset carries everything its kind needs
// before it is marked as tested
package validators

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/bootcamp/registry/internal/models"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

// ErrInvalid is wrapped by every field validation failure returned by Struct
var ErrInvalid = errors.New("invalid input")

var (
	validate   *validator.Validate
	translator ut.Translator

	notBlankTag = "notblank"
)

func init() {
	validate = validator.New()

	english := en.New()
	uni := ut.New(english, english)
	translator, _ = uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// report json names instead of Go field names
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = validate.RegisterValidation(notBlankTag, func(fl validator.FieldLevel) bool {
		s, ok := fl.Field().Interface().(string)
		return ok && strings.TrimSpace(s) != ""
	})
	_ = validate.RegisterTranslation(notBlankTag, translator,
		func(ut.Translator) error { return nil },
		func(_ ut.Translator, fe validator.FieldError) string {
			return fe.Field() + " cannot be blank"
		},
	)
}

// Struct validates v against its `validate` tags. Violations are joined into a
// single message wrapping ErrInvalid.
func Struct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	messages := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		messages = append(messages, fe.Translate(translator))
	}
	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(messages, "; "))
}

// AssetError is a rule violation. Severity becomes the asset's test status.
type AssetError struct {
	Severity models.CheckStatus
	Message  string
}

func (e *AssetError) Error() string {
	return e.Message
}

func errorf(format string, args ...any) *AssetError {
	return &AssetError{Severity: models.CheckStatusError, Message: fmt.Sprintf(format, args...)}
}

func warningf(format string, args ...any) *AssetError {
	return &AssetError{Severity: models.CheckStatusWarning, Message: fmt.Sprintf(format, args...)}
}

// Validator checks one asset
type Validator interface {
	Validate(asset *models.Asset) error
}

type rule func(asset *models.Asset) *AssetError

// ruleSet runs every rule and reports the first error, or the first warning
// when no rule failed with an error
type ruleSet []rule

func (rs ruleSet) Validate(asset *models.Asset) error {
	var warning *AssetError
	for _, r := range rs {
		violation := r(asset)
		if violation == nil {
			continue
		}
		if violation.Severity == models.CheckStatusError {
			return violation
		}
		if warning == nil {
			warning = violation
		}
	}
	if warning != nil {
		return warning
	}
	return nil
}

var (
	baseRules = ruleSet{requiredFields, sourceURL}

	lessonRules   = append(append(ruleSet{}, baseRules...), readmePresent, descriptionPresent, technologiesPresent)
	articleRules  = lessonRules
	exerciseRules = append(append(ruleSet{}, baseRules...), readmePresent, previewPresent, configPresent, difficultyPresent, technologiesPresent)
	projectRules  = append(append(ruleSet{}, exerciseRules...), durationPresent, deliveryRegex)
	quizRules     = append(append(ruleSet{}, baseRules...), configPresent, quizQuestions)
)

// ForAsset returns the validator for the asset's kind
func ForAsset(asset *models.Asset) Validator {
	switch asset.AssetType {
	case models.AssetTypeLesson:
		return lessonRules
	case models.AssetTypeArticle:
		return articleRules
	case models.AssetTypeExercise:
		return exerciseRules
	case models.AssetTypeProject:
		return projectRules
	case models.AssetTypeQuiz:
		return quizRules
	}
	return ruleSet{func(a *models.Asset) *AssetError {
		return errorf("unknown asset type %q", a.AssetType)
	}}
}

type assetFields struct {
	Slug      string `json:"slug" validate:"required"`
	Title     string `json:"title" validate:"notblank"`
	Lang      string `json:"lang" validate:"required"`
	URL       string `json:"url" validate:"omitempty,url"`
	ReadmeURL string `json:"readme_url" validate:"omitempty,url"`
}

func requiredFields(asset *models.Asset) *AssetError {
	err := Struct(assetFields{
		Slug:      asset.Slug,
		Title:     asset.Title,
		Lang:      asset.Lang,
		URL:       asset.URL,
		ReadmeURL: asset.ReadmeURL,
	})
	if err != nil {
		return errorf("%s", strings.TrimPrefix(err.Error(), ErrInvalid.Error()+": "))
	}
	return nil
}

func sourceURL(asset *models.Asset) *AssetError {
	if !asset.External && asset.ReadmeURL == "" {
		return errorf("Missing readme URL")
	}
	return nil
}

func readmePresent(asset *models.Asset) *AssetError {
	text, err := asset.DecodedReadme()
	if err != nil {
		return errorf("Readme cannot be decoded: %v", err)
	}
	if strings.TrimSpace(text) == "" {
		return errorf("Asset is missing a readme file")
	}
	return nil
}

func descriptionPresent(asset *models.Asset) *AssetError {
	if strings.TrimSpace(asset.Description) == "" {
		return warningf("Missing description")
	}
	return nil
}

func technologiesPresent(asset *models.Asset) *AssetError {
	if len(asset.Technologies) == 0 {
		return warningf("Asset has no technologies")
	}
	return nil
}

func previewPresent(asset *models.Asset) *AssetError {
	if asset.Preview == "" {
		return errorf("Missing preview URL")
	}
	return nil
}

func configPresent(asset *models.Asset) *AssetError {
	if len(asset.Config) == 0 {
		return errorf("Missing configuration")
	}
	if !json.Valid(asset.Config) {
		return errorf("Configuration is not valid JSON")
	}
	return nil
}

func difficultyPresent(asset *models.Asset) *AssetError {
	if asset.Difficulty == "" {
		return warningf("Missing difficulty")
	}
	return nil
}

func durationPresent(asset *models.Asset) *AssetError {
	if asset.Duration == nil {
		return warningf("Missing duration")
	}
	return nil
}

func deliveryRegex(asset *models.Asset) *AssetError {
	if strings.Contains(asset.DeliveryFormats, "url") && asset.DeliveryRegexURL == "" {
		return warningf("URL deliveries have no validation regex")
	}
	return nil
}

func quizQuestions(asset *models.Asset) *AssetError {
	var quiz struct {
		Questions []json.RawMessage `json:"questions"`
	}
	if err := json.Unmarshal(asset.Config, &quiz); err != nil {
		return errorf("Quiz configuration must be an object: %v", err)
	}
	if len(quiz.Questions) == 0 {
		return errorf("Quiz has no questions")
	}
	return nil
}
