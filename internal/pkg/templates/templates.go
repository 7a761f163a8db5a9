package templates

import (
	"html/template"
	"io"
)

// Template represents html templates
type Template interface {
	ExecuteTemplate(io.Writer, string, interface{})
}

// HTMLTemplate is a wrapper around html/template package
type HTMLTemplate struct {
	templates *template.Template
}

// ExecuteTemplate wraps the html/template ExecuteTemplate function
func (ht *HTMLTemplate) ExecuteTemplate(rw io.Writer, path string, data interface{}) {
	ht.templates.ExecuteTemplate(rw, path, data)
}

// NewHTMLTemplate returns a new HTMLTemplate
func NewHTMLTemplate() *HTMLTemplate {
	t := template.New("hubauth")
	template.Must(t.Parse(`{{define "header.html"}}
<meta name="viewport" content="width=device-width, initial-scale=1, maximum-scale=1, user-scalable=no">
<link rel="stylesheet" type="text/css" href="/static/hubauth.css">
{{end}}`))

	t = template.Must(t.Parse(`{{define "footer.html"}}
Secured by <b>Hub Auth</b>{{end}}`))

	t = template.Must(t.Parse(`{{define "sign_in_message.html"}}
  {{if .AllowedGroups}}
      <p>
          Access is limited to members of these groups:<br>
          {{range $i, $g := .AllowedGroups}}{{if $i}}, {{end}}<b>{{$g}}</b>{{end}}
      </p>
  {{else}}
      <p>You may sign in with your cluster account.</p>
  {{end}}
{{end}}`))

	t = template.Must(t.Parse(`{{define "sign_in.html"}}
<!DOCTYPE html>
<html lang="en" charset="utf-8">
<head>
	<title>Sign In</title>
	{{template "header.html"}}
</head>


<body>
    <div class="container">
        <div class="content">
            <header>
                <h1>Sign in to <b>{{.Destination}}</b></h1>
            </header>

            {{template "sign_in_message.html" .}}

            <form method="GET" action="{{.Action}}">
                <input type="hidden" name="redirect_uri" value="{{.SignInParams.RedirectURL}}">
                <input type="hidden" name="client_id" value="{{.SignInParams.ClientID}}">
                <input type="hidden" name="response_type" value="{{.SignInParams.ResponseType}}">
                <input type="hidden" name="state" value="{{.SignInParams.State}}">
                <input type="hidden" name="ts" value="{{.SignInParams.TimeStamp}}">
                <input type="hidden" name="sig" value="{{.SignInParams.Signature}}">
                <button type="submit" class="btn">Sign in with {{.ProviderName}}</button>
            </form>
        </div>

        <footer>{{template "footer.html"}}</footer>
    </div>
</body>
</html>
{{end}}`))

	template.Must(t.Parse(`{{define "error.html"}}
<!DOCTYPE html>
<html lang="en" charset="utf-8">
<head>
	<title>Error</title>
	{{template "header.html"}}
</head>
<body>
    <div class="container">
      <div class="content error">
        <header>
            <h1>{{.Title}}</h1>
        </header>
        <p>
          {{.Message}}<br>
          <span class="details">HTTP {{.Code}}</span>
        </p>
    </div>
        <footer>{{template "footer.html"}}</footer>
    </div>
</body>
</html>{{end}}`))

	t = template.Must(t.Parse(`{{define "sign_out.html"}}
<!DOCTYPE html>
<html lang="en" charset="utf-8">
<head>
	<title>Sign Out</title>
	{{template "header.html"}}
</head>
<body>
    <div class="container">
    	<div class="content">
            <header>
                <h1>Sign out of <b>{{.Destination}}</b></h1>
            </header>

            <p>You're currently signed in as <b>{{.User}}</b>. Signing out here does not revoke your cluster tokens.</p>
            <form method="POST" action="{{.Action}}">
              <input type="hidden" name="redirect_uri" value="{{.SignOutParams.RedirectURL}}">
              <input type="hidden" name="sig" value="{{.SignOutParams.Signature}}">
              <input type="hidden" name="ts" value="{{.SignOutParams.TimeStamp}}">
              <button type="submit">Sign out</button>
            </form>
    	</div>
    	<footer>{{template "footer.html"}}</footer>
    </div>
</body>
</html>
{{end}}`))
	return &HTMLTemplate{t}
}
