package transport

// Browser-facing pages. They deliberately reveal nothing about the real
// outcome: the result only travels over the correlated socket.
const confirmationPage = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Sign-in complete</title></head>
<body>
<h1>Sign-in complete</h1>
<p>You can close this window and return to the launcher.</p>
</body>
</html>
`

const errorPage = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Sign-in failed</title></head>
<body>
<h1>Something went wrong</h1>
<p>The sign-in link is invalid or has expired. Return to the launcher and try again.</p>
</body>
</html>
`
