package settings

import (
	"os"
	"path/filepath"
	"reflect"
	"regexp"

	"go.uber.org/zap"
)

type DBSettings struct {
	Filename  string `json:"filename"`
	Directory string `json:"directory"`
	Host      string `json:"host"`
	Port      string `json:"port"`
	Database  string `json:"database"`
	User      string `json:"user"`
	Password  string `json:"password"`
}

type VersionSettings struct {
	// CollectionSuffix is appended to a collection name to form the name of
	// the change-set log that backs it.
	CollectionSuffix  string           `json:"collectionSuffix"`
	TrackDates        bool             `json:"trackDates"`
	RollbackStrategy  RollbackStrategy `json:"rollbackStrategy"`
	SnapshotCacheSize int              `json:"snapshotCacheSize"`
}

type RateLimitSettings struct {
	Enabled bool `json:"enabled"`
	// Points is the number of messages a client may send per Duration
	// seconds before further ones are dropped.
	Points   int   `json:"points"`
	Duration int64 `json:"duration"`
}

type SocketSettings struct {
	// Maximum permitted client message size (in bytes). All messages from
	// clients that are larger than this will be rejected.
	MaxMessageSize int64             `json:"maxMessageSize"`
	RateLimit      RateLimitSettings `json:"rateLimit"`
}

type Settings struct {
	Root             string
	SettingsFilename string `json:"settingsFilename"`
	/**
	 * The app title, visible e.g. in the health endpoint
	 */
	Title         string          `json:"title"`
	IP            string          `json:"ip"`
	Port          string          `json:"port"`
	DBType        IDBType         `json:"dbType"`
	DBSettings    *DBSettings     `json:"dbSettings"`
	EnableMetrics bool            `json:"enableMetrics"`
	ExposeVersion bool            `json:"exposeVersion"`
	TrustProxy    bool            `json:"trustProxy"`
	LogLevel      string          `json:"logLevel"`
	Versions      VersionSettings `json:"versions"`
	Socket        SocketSettings  `json:"socket"`
	GitVersion    string          `json:"-"`
}

func (s *Settings) GetPublicSettings() PublicSettings {
	var gitVersion string
	if s.ExposeVersion {
		gitVersion = s.GitVersion
	}
	return PublicSettings{
		Title:         s.Title,
		ExposeVersion: s.ExposeVersion,
		GitVersion:    gitVersion,
	}
}

var Displayed Settings

// InitSettings loads settings.json from the project root (comments and
// trailing commas allowed), layers environment variables on top and stores
// the result in Displayed.
func InitSettings(logger *zap.SugaredLogger) {
	var pathToRoot = findRoot()

	var settingsFilePath = filepath.Join(pathToRoot, "settings.json")
	var jsonStr string
	settingsFile, err := os.ReadFile(settingsFilePath)
	if err != nil {
		logger.Info("No settings.json found. Default settings will be used.")
	} else {
		jsonStr = StripWithOptions(string(settingsFile), &Options{Whitespace: true, TrailingCommas: true})
	}

	setting, err := ReadConfig(jsonStr)
	if err != nil {
		logger.Fatalf("error reading settings: %s", err.Error())
		return
	}
	LookUpEnvVariables(setting)
	setting.GitVersion = GitVersion()
	setting.Root = pathToRoot
	setting.SettingsFilename = settingsFilePath
	Displayed = *setting
}

func findRoot() string {
	var envPathToSettings = os.Getenv("REVLOG_SETTINGS_PATH")
	if envPathToSettings != "" {
		return envPathToSettings
	}

	dir, err := os.Getwd()
	if err != nil {
		return "."
	}

	for i := 0; i < 10; i++ {
		var _, err = os.Stat(filepath.Join(dir, "settings.json"))
		if err == nil {
			return dir
		}

		var parent = filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	var cwd, _ = os.Getwd()
	return cwd
}

func stripWithoutWhitespace() string {
	return ""
}

var rgx = regexp.MustCompile(`\S`)

func stripWithWhitespace(string string, start *int, end *int) string {
	// slice only if start and end are not nil
	if start != nil && end != nil {
		string = string[*start:*end]
	} else if start != nil {
		string = string[*start:]
	}

	return rgx.ReplaceAllString(string, " ")
}

func isEscaped(jsonString string, quotePosition int) bool {
	index := quotePosition - 1
	backslashCount := 0

	for string(jsonString[index]) == "\\" {
		index -= 1
		backslashCount += 1
	}

	return backslashCount%2 == 1
}

type Options struct {
	Whitespace     bool
	TrailingCommas bool
}

const notInsideComment = 0
const singleComment = 1
const multiComment = 2

func StripWithOptions(jsonString string, options *Options) string {

	// if options are not provided, use default options
	// whitespace: true
	// trailingCommas: false
	if options == nil {
		options = &Options{Whitespace: true, TrailingCommas: false}
	}

	isInsideString := false
	isInsideComment := notInsideComment
	offset := 0
	buffer := ""
	result := ""
	commaIndex := -1

	// shorthand function
	strip := func(index int) string {
		if options.Whitespace {
			return stripWithWhitespace(jsonString, &offset, &index)
		} else {
			return stripWithoutWhitespace()
		}
	}

	for index := 0; index < len(jsonString); index++ {
		currentCharacter := string(jsonString[index])
		nextCharacter := ""

		if index+1 < len(jsonString) {
			nextCharacter = string(jsonString[index+1])
		}

		if isInsideComment == notInsideComment && currentCharacter == `"` {
			// Enter or exit string
			escaped := isEscaped(jsonString, index)
			if !escaped {
				isInsideString = !isInsideString
			}
		}

		if isInsideString {
			continue
		}

		if isInsideComment == notInsideComment && currentCharacter+nextCharacter == "//" {
			// Enter single-line comment
			buffer += jsonString[offset:index]
			offset = index
			isInsideComment = singleComment
			index++
		} else if isInsideComment == singleComment && currentCharacter+nextCharacter == "\r\n" {
			// Exit single-line comment via \r\n
			index++
			isInsideComment = notInsideComment
			buffer += strip(index)
			offset = index
		} else if isInsideComment == singleComment && currentCharacter == "\n" {
			// Exit single-line comment via \n
			isInsideComment = notInsideComment
			buffer += strip(index)
			offset = index
		} else if isInsideComment == notInsideComment && currentCharacter+nextCharacter == "/*" {
			// Enter multiline comment
			buffer += jsonString[offset:index]
			offset = index
			isInsideComment = multiComment
			index++

		} else if isInsideComment == multiComment && currentCharacter+nextCharacter == "*/" {
			// Exit multiline comment
			index++
			isInsideComment = notInsideComment
			buffer += strip(index + 1)
			offset = index + 1

		} else if options.TrailingCommas && isInsideComment == notInsideComment {
			if commaIndex != -1 {
				if currentCharacter == "}" || currentCharacter == "]" {
					// Strip trailing comma
					buffer += jsonString[offset:index]
					if options.Whitespace {
						s, e := 0, 1
						result += stripWithWhitespace(jsonString, &s, &e)
					} else {
						result += stripWithoutWhitespace()
					}
					result += buffer[1:]
					buffer = ""
					offset = index
					commaIndex = -1
				} else if currentCharacter != " " && currentCharacter != "\t" && currentCharacter != "\r" && currentCharacter != "\n" {
					// Hit non-whitespace following a comma; comma is not trailing
					buffer += jsonString[offset:index]
					offset = index
					commaIndex = -1
				}
			} else if currentCharacter == "," {
				// Flush buffer prior to this point, and save new comma index
				result += buffer + jsonString[offset:index]
				buffer = ""
				offset = index
				commaIndex = index

			}
		}
	}

	var end string
	if isInsideComment > notInsideComment {
		if options.Whitespace {
			end = stripWithWhitespace(jsonString[offset:], nil, nil)
		} else {
			end = stripWithoutWhitespace()
		}

	} else {
		end = jsonString[offset:]
	}

	return result + buffer + end
}

var envVarRe = regexp.MustCompile(`^\$\{([^:}]*)(:(.*))?\}$`)

// LookUpEnvVariables traversiert s und ersetzt String-Felder vom Format ${ENV} oder ${ENV:default}.
// - Falls ENV gesetzt: Wert aus der Umgebung verwenden.
// - Falls ENV nicht gesetzt und default vorhanden: default verwenden.
// - Sonst Originalwert belassen.
func LookUpEnvVariables(s *Settings) {
	if s == nil {
		return
	}
	processValue(reflect.ValueOf(s).Elem())
}

func processValue(v reflect.Value) {
	// If it's invalid, nothing to do
	if !v.IsValid() {
		return
	}

	switch v.Kind() {
	case reflect.Ptr:
		if v.IsNil() {
			return
		}
		processValue(v.Elem())
	case reflect.Interface:
		if v.IsNil() {
			return
		}
		processValue(v.Elem())
	case reflect.Struct:
		// iterate fields; only addressable/exported fields can be Set
		for i := 0; i < v.NumField(); i++ {
			f := v.Field(i)
			// allow descending into unexported struct fields only if addressable (rare)
			if !f.CanSet() && !(f.Kind() == reflect.Struct || f.Kind() == reflect.Ptr || f.Kind() == reflect.Interface) {
				continue
			}
			processValue(f)
		}
	case reflect.Map:
		// iterate keys and replace values in-place
		for _, k := range v.MapKeys() {
			val := v.MapIndex(k)
			if !val.IsValid() {
				continue
			}
			// copy the value so we can modify it
			newVal := reflect.New(val.Type()).Elem()
			newVal.Set(val)
			processValue(newVal)
			v.SetMapIndex(k, newVal)
		}
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			elem := v.Index(i)
			processValue(elem)
		}
	case reflect.String:
		orig := v.String()
		m := envVarRe.FindStringSubmatch(orig)
		if m == nil {
			return
		}
		envName := m[1]
		def := ""
		if len(m) >= 4 {
			def = m[3]
		}
		if envVal, ok := os.LookupEnv(envName); ok {
			v.SetString(envVal)
		} else if def != "" {
			v.SetString(def)
		}
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return
	default:
		return
	}
}
