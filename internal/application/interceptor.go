package application

import "context"

// UnauthenticatedSource is implemented by the REST client.
type UnauthenticatedSource interface {
	OnUnauthenticated(hook func(context.Context))
}

// SignInNavigator forces navigation to the sign-in view.
type SignInNavigator interface {
	ForceSignIn() bool
}

// InstallInterceptor clears the session and forces the sign-in view whenever
// the backend answers 401 to any request.
func InstallInterceptor(source UnauthenticatedSource, session *SessionManager, nav SignInNavigator) {
	source.OnUnauthenticated(func(ctx context.Context) {
		session.HandleUnauthenticated(ctx)
		if nav != nil {
			nav.ForceSignIn()
		}
	})
}
