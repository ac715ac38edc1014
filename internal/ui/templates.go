package ui

import "html/template"

// pageTemplate はゲートウェイの単一ページテンプレート。
// マークアップは最小限に留め、描画内容はすべてハンドラー側で組み立てた
// pageDataから埋め込む。活動名とメールはテンプレートエンジンが
// エスケープし、説明・スケジュールは埋め込み前にサニタイズ済み。
var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>clubhub</title>
</head>
<body>
<header>
  <h1>Extracurricular Activities</h1>
  {{if .Authenticated}}
  <form method="post" action="/logout"><button type="submit">{{.Banner}}</button></form>
  {{else}}
  <form method="post" action="/login">
    <input name="username" placeholder="Username" required>
    <input name="password" type="password" placeholder="Password" required>
    <button type="submit">Login</button>
  </form>
  {{end}}
  {{if .LoginNotice.Visible}}<p class="{{.LoginNotice.Kind}}" id="login-message">{{.LoginNotice.Text}}</p>{{end}}
  {{if .MainNotice.Visible}}<p class="{{.MainNotice.Kind}}" id="message">{{.MainNotice.Text}}</p>{{end}}
</header>

<section id="activities-list">
{{if .Roster.Failed}}
  <p>{{.Roster.ErrorMessage}}</p>
{{else}}
  {{range .Roster.Cards}}
  <div class="activity-card">
    <h4>{{.Name}}</h4>
    <p>{{.Description}}</p>
    <p><strong>Schedule:</strong> {{.Schedule}}</p>
    <p><strong>Availability:</strong> {{.SpotsLeft}} spots left</p>
    {{if .Participants}}
    <ul class="participants-list">
      {{$activity := .Name}}
      {{range .Participants}}
      <li>
        <span class="participant-email">{{.Email}}</span>
        {{if .CanUnregister}}
        <form method="post" action="/unregister">
          <input type="hidden" name="activity" value="{{$activity}}">
          <input type="hidden" name="email" value="{{.Email}}">
          <input type="hidden" name="confirm" value="yes">
          <button type="submit" class="delete-btn">Remove</button>
        </form>
        {{end}}
      </li>
      {{end}}
    </ul>
    {{else}}
    <p><em>No participants yet</em></p>
    {{end}}
  </div>
  {{end}}
{{end}}
</section>

<section id="signup-container">
  <h3>Sign Up for an Activity</h3>
  {{if not .Authenticated}}
  <p id="auth-required-message">Please log in to sign up students.</p>
  {{end}}
  <form method="post" action="/signup">
    <input name="email" type="email" placeholder="student email" required>
    <select name="activity">
      <option value="">-- Select an activity --</option>
      {{range .Roster.Options}}<option value="{{.}}">{{.}}</option>
      {{end}}
    </select>
    <button type="submit" id="signup-btn" {{if not .Authenticated}}disabled{{end}}>Sign Up</button>
  </form>
</section>
</body>
</html>
`))
