package bandit

import "github.com/CZERTAINLY/Gatekeeper/internal/model"

var genericRemediation = model.Remediation{
	Text: "Review the flagged code and apply secure coding best practices.",
}

// remediations maps bandit test ids to fix guidance.
var remediations = map[string]model.Remediation{
	"B101": {
		Text:    "Do not rely on assert for security checks, asserts are removed when Python runs with -O.",
		Example: "if not user.is_admin:\n    raise PermissionError()",
	},
	"B102": {
		Text: "Avoid exec on data which may be influenced by users.",
	},
	"B103": {
		Text:    "Restrict file permissions to the minimum required.",
		Example: "os.chmod(path, 0o600)",
	},
	"B104": {
		Text:    "Bind to a specific interface instead of all interfaces.",
		Example: "app.run(host=\"127.0.0.1\")",
	},
	"B105": {
		Text:    "Move hardcoded passwords out of the source into environment variables or a secret store.",
		Example: "password = os.environ[\"DB_PASSWORD\"]",
	},
	"B106": {
		Text:    "Do not pass hardcoded passwords as function arguments, load them from configuration.",
		Example: "connect(password=os.environ[\"DB_PASSWORD\"])",
	},
	"B107": {
		Text: "Do not use hardcoded passwords as argument defaults.",
	},
	"B108": {
		Text:    "Use the tempfile module instead of fixed paths in /tmp.",
		Example: "with tempfile.NamedTemporaryFile() as f:",
	},
	"B110": {
		Text:    "Do not silence exceptions with a bare pass, log or handle them.",
		Example: "except ValueError as err:\n    logger.warning(\"invalid input: %s\", err)",
	},
	"B201": {
		Text:    "Never run Flask with debug=True in production, the debugger allows code execution.",
		Example: "app.run(debug=False)",
	},
	"B301": {
		Text: "Do not unpickle untrusted data, use a safe format such as JSON.",
	},
	"B303": {
		Text:    "Replace MD5/SHA1 with a strong hash function.",
		Example: "hashlib.sha256(data).hexdigest()",
	},
	"B307": {
		Text:    "Replace eval with ast.literal_eval or explicit parsing.",
		Example: "value = ast.literal_eval(text)",
	},
	"B311": {
		Text:    "Use the secrets module for security sensitive random values.",
		Example: "token = secrets.token_urlsafe(32)",
	},
	"B324": {
		Text:    "Replace weak hash algorithms, or pass usedforsecurity=False when the hash is not security relevant.",
		Example: "hashlib.sha256(data)",
	},
	"B501": {
		Text:    "Do not disable TLS certificate verification.",
		Example: "requests.get(url, verify=True)",
	},
	"B506": {
		Text:    "Use yaml.safe_load instead of yaml.load.",
		Example: "data = yaml.safe_load(stream)",
	},
	"B602": {
		Text:    "Avoid shell=True in subprocess calls, pass arguments as a list.",
		Example: "subprocess.run([\"ls\", \"-l\", path], check=True)",
	},
	"B605": {
		Text: "Avoid starting processes with a shell, use subprocess with an argument list.",
	},
	"B608": {
		Text:    "Use parameterized queries instead of building SQL with string formatting.",
		Example: "cursor.execute(\"SELECT * FROM users WHERE name = %s\", (name,))",
	},
	"B701": {
		Text:    "Enable autoescaping in Jinja2 environments.",
		Example: "Environment(autoescape=select_autoescape())",
	},
	"B703": {
		Text: "Avoid mark_safe on data which may come from users.",
	},
}

// Remediation returns the guidance for a bandit test id. Unknown ids get
// generic guidance.
func Remediation(testID string) model.Remediation {
	if r, ok := remediations[testID]; ok {
		return r
	}
	return genericRemediation
}
